// Package execution forwards client-signed transactions to the network.
// Nothing here ever holds a key.
package execution

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"Jarvis/internal/domain/models"
	"Jarvis/internal/services/market"
	"Jarvis/pkg/logger"
)

const (
	RouteRPC  = "rpc"
	RouteJito = "jito"
)

var ErrInvalidTransaction = errors.New("transaction must be non-empty base64")

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string { return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message) }

type rpcResponse struct {
	Result string    `json:"result"`
	Error  *rpcError `json:"error"`
}

type sendOptions struct {
	Encoding      string `json:"encoding"`
	SkipPreflight bool   `json:"skipPreflight,omitempty"`
	MaxRetries    int    `json:"maxRetries,omitempty"`
}

// Submitter sends through the RPC node, or through the Jito block engine
// when asked. A Jito failure falls back to the RPC node.
type Submitter struct {
	rpc           *market.HTTPServiceBase
	jito          *market.HTTPServiceBase
	skipPreflight bool
	log           *logger.Logger
	ids           atomic.Uint64
	now           func() time.Time
}

func NewSubmitter(rpc, jito *market.HTTPServiceBase, skipPreflight bool, l *logger.Logger) *Submitter {
	if l == nil {
		l = logger.Nop()
	}
	return &Submitter{rpc: rpc, jito: jito, skipPreflight: skipPreflight, log: l, now: time.Now}
}

func (s *Submitter) Submit(ctx context.Context, signedTx string, useJito bool) (models.SubmitResult, error) {
	if signedTx == "" {
		return models.SubmitResult{}, ErrInvalidTransaction
	}
	if _, err := base64.StdEncoding.DecodeString(signedTx); err != nil {
		return models.SubmitResult{}, fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}

	if useJito && s.jito != nil {
		sig, err := s.send(ctx, s.jito, signedTx, sendOptions{Encoding: "base64"})
		if err == nil {
			return s.result(sig, RouteJito), nil
		}
		s.log.Warn("jito submit failed, falling back to rpc", logger.Error(err))
	}
	sig, err := s.send(ctx, s.rpc, signedTx, sendOptions{
		Encoding:      "base64",
		SkipPreflight: s.skipPreflight,
		MaxRetries:    3,
	})
	if err != nil {
		return models.SubmitResult{}, err
	}
	return s.result(sig, RouteRPC), nil
}

func (s *Submitter) send(ctx context.Context, to *market.HTTPServiceBase, tx string, opts sendOptions) (string, error) {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      s.ids.Add(1),
		Method:  "sendTransaction",
		Params:  []interface{}{tx, opts},
	}
	var resp rpcResponse
	if err := to.PostJSON(ctx, "", req, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("%s: %w", to.Name(), resp.Error)
	}
	if resp.Result == "" {
		return "", fmt.Errorf("%s: empty signature", to.Name())
	}
	return resp.Result, nil
}

func (s *Submitter) result(sig, route string) models.SubmitResult {
	return models.SubmitResult{Signature: sig, Route: route, SubmittedAt: s.now().UTC()}
}
