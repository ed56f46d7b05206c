// Package verify submits contract sources to Etherscan for verification.
package verify

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// DefaultAPIURL is the multichain Etherscan endpoint; the chain is chosen by chainid.
const DefaultAPIURL = "https://api.etherscan.io/v2/api"

// Source code formats accepted by verifysourcecode.
const (
	FormatSingleFile   = "solidity-single-file"
	FormatStandardJSON = "solidity-standard-json-input"
)

var (
	// ErrVerificationFailed is returned when Etherscan rejects the submitted source.
	ErrVerificationFailed = errors.New("verification failed")
	// ErrPending is returned when the status is still pending after the last poll.
	ErrPending = errors.New("verification still pending")
)

// Request describes one source verification.
type Request struct {
	Address common.Address
	// ContractName is the fully qualified name, e.g. "contracts/Raffle.sol:Raffle".
	ContractName    string
	CompilerVersion string
	SourceCode      string
	CodeFormat      string
	// ConstructorArgs is the ABI encoding of the constructor arguments.
	ConstructorArgs []byte
	Optimized       bool
	Runs            int
}

// Service verifies contract sources.
type Service interface {
	Verify(ctx context.Context, req Request) error
}

// APIError is a response with status "0".
type APIError struct {
	Message string
	Result  string
}

func (e *APIError) Error() string {
	if e.Result == "" {
		return "etherscan: " + e.Message
	}
	return "etherscan: " + e.Result
}

type apiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// EtherscanOptions configures an Etherscan client.
type EtherscanOptions struct {
	APIKey  string
	BaseURL string
	ChainID *big.Int
	// PollInterval between status checks (default 5s).
	PollInterval time.Duration
	// MaxPolls bounds the status checks (default 30).
	MaxPolls   int
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Etherscan is the Etherscan source verification API.
type Etherscan struct {
	apiKey       string
	baseURL      string
	chainID      *big.Int
	pollInterval time.Duration
	maxPolls     int
	client       *http.Client
	logger       *zap.Logger
}

var _ Service = (*Etherscan)(nil)

func NewEtherscan(opts EtherscanOptions) (*Etherscan, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("etherscan api key required")
	}
	if opts.ChainID == nil || opts.ChainID.Sign() <= 0 {
		return nil, fmt.Errorf("chain id required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultAPIURL
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.MaxPolls <= 0 {
		opts.MaxPolls = 30
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Etherscan{
		apiKey:       opts.APIKey,
		baseURL:      opts.BaseURL,
		chainID:      new(big.Int).Set(opts.ChainID),
		pollInterval: opts.PollInterval,
		maxPolls:     opts.MaxPolls,
		client:       opts.HTTPClient,
		logger:       opts.Logger,
	}, nil
}

// Verify submits req and polls until Etherscan reports a result.
func (e *Etherscan) Verify(ctx context.Context, req Request) error {
	guid, err := e.submit(ctx, req)
	if err != nil {
		return err
	}
	e.logger.Debug("Verification submitted",
		zap.String("guid", guid),
		zap.String("address", req.Address.Hex()))
	return e.waitStatus(ctx, guid)
}

func (e *Etherscan) submit(ctx context.Context, req Request) (string, error) {
	format := req.CodeFormat
	if format == "" {
		format = FormatSingleFile
	}
	optimized := "0"
	if req.Optimized {
		optimized = "1"
	}

	form := url.Values{}
	form.Set("apikey", e.apiKey)
	form.Set("module", "contract")
	form.Set("action", "verifysourcecode")
	form.Set("contractaddress", req.Address.Hex())
	form.Set("sourceCode", req.SourceCode)
	form.Set("codeformat", format)
	form.Set("contractname", req.ContractName)
	form.Set("compilerversion", req.CompilerVersion)
	form.Set("optimizationUsed", optimized)
	form.Set("runs", strconv.Itoa(req.Runs))
	// the API spells this field "Arguements"
	form.Set("constructorArguements", hex.EncodeToString(req.ConstructorArgs))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint(nil), strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.do(httpReq)
	if err != nil {
		return "", err
	}
	if resp.Status != "1" {
		return "", &APIError{Message: resp.Message, Result: resp.Result}
	}
	return resp.Result, nil
}

func (e *Etherscan) waitStatus(ctx context.Context, guid string) error {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for i := 0; i < e.maxPolls; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		done, err := e.checkStatus(ctx, guid)
		if done || err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: guid %s", ErrPending, guid)
}

// checkStatus reports whether verification finished and how.
func (e *Etherscan) checkStatus(ctx context.Context, guid string) (bool, error) {
	q := url.Values{}
	q.Set("apikey", e.apiKey)
	q.Set("module", "contract")
	q.Set("action", "checkverifystatus")
	q.Set("guid", guid)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, e.endpoint(q), nil)
	if err != nil {
		return false, err
	}
	resp, err := e.do(httpReq)
	if err != nil {
		return false, err
	}

	e.logger.Debug("Verification status", zap.String("guid", guid), zap.String("result", resp.Result))
	switch {
	case resp.Status == "1":
		return true, nil
	case strings.Contains(strings.ToLower(resp.Result), "pending"):
		return false, nil
	case IsAlreadyVerified(errors.New(resp.Result)):
		return true, &APIError{Message: resp.Message, Result: resp.Result}
	default:
		return true, fmt.Errorf("%w: %w", ErrVerificationFailed, &APIError{Message: resp.Message, Result: resp.Result})
	}
}

func (e *Etherscan) endpoint(q url.Values) string {
	if q == nil {
		q = url.Values{}
	}
	q.Set("chainid", e.chainID.String())
	return e.baseURL + "?" + q.Encode()
}

func (e *Etherscan) do(req *http.Request) (*apiResponse, error) {
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("etherscan request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read etherscan response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("etherscan returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out apiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode etherscan response: %w", err)
	}
	return &out, nil
}
