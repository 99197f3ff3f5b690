package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/vaultlabs/vault-contract/rpc/vault"
)

// remoteBlockchain wraps Neo RPC client providing blockchain services needed
// for vault commands.
type remoteBlockchain struct {
	rpc *rpcclient.Client

	waitTimeout time.Duration
}

// newRemoteBlockchain dials Neo RPC server and returns remoteBlockchain based
// on the opened connection.
func newRemoteBlockchain(ctx context.Context, cfg Config) (*remoteBlockchain, error) {
	err := cfg.validateRPC()
	if err != nil {
		return nil, err
	}

	c, err := rpcclient.New(ctx, cfg.RPC.Endpoint, rpcclient.Options{
		DialTimeout:    cfg.RPC.DialTimeout,
		RequestTimeout: cfg.RPC.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("RPC client dial: %w", err)
	}

	err = c.Init()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("init RPC client: %w", err)
	}

	return &remoteBlockchain{
		rpc:         c,
		waitTimeout: cfg.WaitTimeout,
	}, nil
}

func (x *remoteBlockchain) close() {
	x.rpc.Close()
}

// await waits for the transaction sent by a to be accepted and returns its
// application log. Faulted transaction is reported as error matching
// contract errors from package vault.
func (x *remoteBlockchain) await(ctx context.Context, a *actor.Actor, h util.Uint256, vub uint32, err error) (*result.ApplicationLog, error) {
	if err != nil {
		return nil, err
	}

	type waitResult struct {
		res *state.AppExecResult
		err error
	}

	ctx, cancel := context.WithTimeout(ctx, x.waitTimeout)
	defer cancel()

	ch := make(chan waitResult, 1)
	go func() {
		res, err := a.Wait(h, vub, nil)
		ch <- waitResult{res, err}
	}()

	var res *state.AppExecResult
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for transaction %s: %w", h.StringLE(), ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("wait for transaction %s: %w", h.StringLE(), r.err)
		}
		res = r.res
	}

	if res.VMState != vmstate.Halt {
		return nil, vault.FromError(fmt.Errorf("transaction %s failed: %s", h.StringLE(), res.FaultException))
	}

	return &result.ApplicationLog{
		Container:  h,
		Executions: []state.Execution{res.Execution},
	}, nil
}

// iterateContractStorage iterates over all storage items of the Neo smart
// contract referenced by given address at the given height and passes them
// into f. iterateContractStorage breaks on any f's error and returns it.
func (x *remoteBlockchain) iterateContractStorage(contract util.Uint160, height uint32, f func(key, value []byte) error) error {
	stateRoot, err := x.rpc.GetStateRootByHeight(height)
	if err != nil {
		return fmt.Errorf("get state root at block #%d: %w", height, err)
	}

	var start []byte

	for {
		res, err := x.rpc.FindStates(stateRoot.Root, contract, nil, start, nil)
		if err != nil {
			return fmt.Errorf("get historical storage items of the requested contract at state root '%s': %w", stateRoot.Root, err)
		}

		for i := range res.Results {
			err = f(res.Results[i].Key, res.Results[i].Value)
			if err != nil {
				return err
			}
		}

		if !res.Truncated {
			return nil
		}

		if len(res.Results) == 0 {
			return errors.New("truncated result without items")
		}

		start = res.Results[len(res.Results)-1].Key
	}
}
