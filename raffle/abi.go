package raffle

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract names as recorded in the deployments
const (
	ContractRaffle      = "Raffle"
	ContractCoordinator = "VRFCoordinatorV2Mock"
)

// RaffleABI is the external interface of the Raffle contract.
const RaffleABI = `[
  {"type":"constructor","stateMutability":"nonpayable","inputs":[
    {"name":"vrfCoordinatorV2","type":"address"},
    {"name":"subscriptionId","type":"uint64"},
    {"name":"gasLane","type":"bytes32"},
    {"name":"interval","type":"uint256"},
    {"name":"entranceFee","type":"uint256"},
    {"name":"callbackGasLimit","type":"uint32"}]},
  {"type":"error","name":"OnlyCoordinatorCanFulfill","inputs":[{"name":"have","type":"address"},{"name":"want","type":"address"}]},
  {"type":"error","name":"Raffle__NotEnoughETHEntered","inputs":[]},
  {"type":"error","name":"Raffle__NotOpen","inputs":[]},
  {"type":"error","name":"Raffle__TransferFailed","inputs":[]},
  {"type":"error","name":"Raffle__UpkeepNotNeeded","inputs":[
    {"name":"currentBalance","type":"uint256"},
    {"name":"numPlayers","type":"uint256"},
    {"name":"raffleState","type":"uint256"}]},
  {"type":"event","name":"RaffleEnter","anonymous":false,"inputs":[{"name":"player","type":"address","indexed":true}]},
  {"type":"event","name":"RequestedRaffleWinner","anonymous":false,"inputs":[{"name":"requestId","type":"uint256","indexed":true}]},
  {"type":"event","name":"WinnerPicked","anonymous":false,"inputs":[{"name":"player","type":"address","indexed":true}]},
  {"type":"function","name":"checkUpkeep","stateMutability":"view","inputs":[{"name":"","type":"bytes"}],
    "outputs":[{"name":"upkeepNeeded","type":"bool"},{"name":"","type":"bytes"}]},
  {"type":"function","name":"enterRaffle","stateMutability":"payable","inputs":[],"outputs":[]},
  {"type":"function","name":"getEntranceFee","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getInterval","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getLatestTimeStamp","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getNumWords","stateMutability":"pure","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getNumberOfPlayers","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getPlayer","stateMutability":"view","inputs":[{"name":"index","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"getRaffleState","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
  {"type":"function","name":"getRecentWinner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"getRequestConfirmations","stateMutability":"pure","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"performUpkeep","stateMutability":"nonpayable","inputs":[{"name":"","type":"bytes"}],"outputs":[]},
  {"type":"function","name":"rawFulfillRandomWords","stateMutability":"nonpayable","inputs":[
    {"name":"requestId","type":"uint256"},
    {"name":"randomWords","type":"uint256[]"}],"outputs":[]}
]`

// CoordinatorABI is the interface of the VRFCoordinatorV2Mock used on development chains.
const CoordinatorABI = `[
  {"type":"constructor","stateMutability":"nonpayable","inputs":[
    {"name":"_baseFee","type":"uint96"},
    {"name":"_gasPriceLink","type":"uint96"}]},
  {"type":"error","name":"InsufficientBalance","inputs":[]},
  {"type":"error","name":"InvalidConsumer","inputs":[{"name":"subId","type":"uint64"},{"name":"consumer","type":"address"}]},
  {"type":"error","name":"InvalidRandomWords","inputs":[]},
  {"type":"error","name":"InvalidSubscription","inputs":[]},
  {"type":"error","name":"MustBeSubOwner","inputs":[{"name":"owner","type":"address"}]},
  {"type":"event","name":"ConsumerAdded","anonymous":false,"inputs":[
    {"name":"subId","type":"uint64","indexed":true},
    {"name":"consumer","type":"address","indexed":false}]},
  {"type":"event","name":"RandomWordsFulfilled","anonymous":false,"inputs":[
    {"name":"requestId","type":"uint256","indexed":true},
    {"name":"outputSeed","type":"uint256","indexed":false},
    {"name":"payment","type":"uint96","indexed":false},
    {"name":"success","type":"bool","indexed":false}]},
  {"type":"event","name":"RandomWordsRequested","anonymous":false,"inputs":[
    {"name":"keyHash","type":"bytes32","indexed":true},
    {"name":"requestId","type":"uint256","indexed":false},
    {"name":"preSeed","type":"uint256","indexed":false},
    {"name":"subId","type":"uint64","indexed":true},
    {"name":"minimumRequestConfirmations","type":"uint16","indexed":false},
    {"name":"callbackGasLimit","type":"uint32","indexed":false},
    {"name":"numWords","type":"uint32","indexed":false},
    {"name":"sender","type":"address","indexed":true}]},
  {"type":"event","name":"SubscriptionCreated","anonymous":false,"inputs":[
    {"name":"subId","type":"uint64","indexed":true},
    {"name":"owner","type":"address","indexed":false}]},
  {"type":"event","name":"SubscriptionFunded","anonymous":false,"inputs":[
    {"name":"subId","type":"uint64","indexed":true},
    {"name":"oldBalance","type":"uint256","indexed":false},
    {"name":"newBalance","type":"uint256","indexed":false}]},
  {"type":"function","name":"addConsumer","stateMutability":"nonpayable","inputs":[
    {"name":"_subId","type":"uint64"},{"name":"_consumer","type":"address"}],"outputs":[]},
  {"type":"function","name":"createSubscription","stateMutability":"nonpayable","inputs":[],"outputs":[{"name":"_subId","type":"uint64"}]},
  {"type":"function","name":"fulfillRandomWords","stateMutability":"nonpayable","inputs":[
    {"name":"_requestId","type":"uint256"},{"name":"_consumer","type":"address"}],"outputs":[]},
  {"type":"function","name":"fundSubscription","stateMutability":"nonpayable","inputs":[
    {"name":"_subId","type":"uint64"},{"name":"_amount","type":"uint96"}],"outputs":[]},
  {"type":"function","name":"getSubscription","stateMutability":"view","inputs":[{"name":"_subId","type":"uint64"}],
    "outputs":[{"name":"balance","type":"uint96"},{"name":"reqCount","type":"uint64"},{"name":"owner","type":"address"},{"name":"consumers","type":"address[]"}]},
  {"type":"function","name":"requestRandomWords","stateMutability":"nonpayable","inputs":[
    {"name":"_keyHash","type":"bytes32"},
    {"name":"_subId","type":"uint64"},
    {"name":"_minimumRequestConfirmations","type":"uint16"},
    {"name":"_callbackGasLimit","type":"uint32"},
    {"name":"_numWords","type":"uint32"}],"outputs":[{"name":"","type":"uint256"}]}
]`

var (
	raffleABI      = mustParseABI(RaffleABI)
	coordinatorABI = mustParseABI(CoordinatorABI)
)

// ParsedRaffleABI returns the parsed Raffle ABI.
func ParsedRaffleABI() *abi.ABI { return &raffleABI }

// ParsedCoordinatorABI returns the parsed coordinator mock ABI.
func ParsedCoordinatorABI() *abi.ABI { return &coordinatorABI }

// mustParseABI is the same as calling abi.JSON but panics on error.
// Only use it with string constants known to be correct.
func mustParseABI(json string) abi.ABI {
	val, err := abi.JSON(strings.NewReader(json))
	if err != nil {
		panic(fmt.Errorf("unable to parse ABI: %w", err))
	}
	return val
}
