package dispatch_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nfsd3/nfsd3/internal/nfs/dispatch"
	"github.com/nfsd3/nfsd3/internal/nfs/rpc"
)

func TestDispatchUnknownProgramIsProgUnavail(t *testing.T) {
	table := dispatch.NewTable()
	result := table.Dispatch(context.Background(), &rpc.CallEnvelope{Prog: 999999, Vers: 1, Proc: 0})
	assert.Equal(t, dispatch.OutcomeProgUnavail, result.Outcome)
}

func TestDispatchVersionMismatchReportsSupportedRange(t *testing.T) {
	table := dispatch.NewTable()
	table.Register(dispatch.ProgNFS, 3, 0, func(ctx context.Context, call *rpc.CallEnvelope) ([]byte, error) {
		return nil, nil
	})

	result := table.Dispatch(context.Background(), &rpc.CallEnvelope{Prog: dispatch.ProgNFS, Vers: 2, Proc: 0})
	assert.Equal(t, dispatch.OutcomeProgMismatch, result.Outcome)
	assert.Equal(t, uint32(3), result.MismatchLow)
	assert.Equal(t, uint32(3), result.MismatchHigh)
}

func TestDispatchUnknownProcedureIsProcUnavail(t *testing.T) {
	table := dispatch.NewTable()
	table.Register(dispatch.ProgNFS, 3, 0, func(ctx context.Context, call *rpc.CallEnvelope) ([]byte, error) {
		return nil, nil
	})

	result := table.Dispatch(context.Background(), &rpc.CallEnvelope{Prog: dispatch.ProgNFS, Vers: 3, Proc: 99})
	assert.Equal(t, dispatch.OutcomeProcUnavail, result.Outcome)
}

func TestDispatchHandledReturnsHandlerBody(t *testing.T) {
	table := dispatch.NewTable()
	table.Register(dispatch.ProgNFS, 3, 0, func(ctx context.Context, call *rpc.CallEnvelope) ([]byte, error) {
		return []byte("ok"), nil
	})

	result := table.Dispatch(context.Background(), &rpc.CallEnvelope{Prog: dispatch.ProgNFS, Vers: 3, Proc: 0})
	assert.Equal(t, dispatch.OutcomeHandled, result.Outcome)
	assert.Equal(t, []byte("ok"), result.Body)
	assert.NoError(t, result.Err)
}

func TestDispatchHandledSurfacesHandlerError(t *testing.T) {
	table := dispatch.NewTable()
	wantErr := &dispatch.ErrGarbageArgs{Err: assertError{}}
	table.Register(dispatch.ProgNFS, 3, 0, func(ctx context.Context, call *rpc.CallEnvelope) ([]byte, error) {
		return nil, wantErr
	})

	result := table.Dispatch(context.Background(), &rpc.CallEnvelope{Prog: dispatch.ProgNFS, Vers: 3, Proc: 0})
	assert.Equal(t, dispatch.OutcomeHandled, result.Outcome)
	assert.Equal(t, wantErr, result.Err)
}

type assertError struct{}

func (assertError) Error() string { return "bad args" }
