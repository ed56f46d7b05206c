// Package integration holds the raffle suites. TestRaffleUnit runs against
// development chains (hardhat, localhost) and drives the VRF coordinator mock
// itself; TestRaffleStaging runs against live networks and waits for the real
// automation and VRF services. RAFFLE_NETWORK selects the network, so exactly
// one of the two runs and the other is skipped.
package integration
