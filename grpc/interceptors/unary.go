package interceptors

import (
	"context"

	"github.com/rainbow-me/grpc-client-logging/common/logger"
)

// unaryResult awaits a unary invocation and logs its single terminal event
// before the caller observes the outcome.
type unaryResult struct {
	call *CallContext
	log  *logger.Logger
	cfg  *LoggingInterceptorConfig
}

// await runs invoke, which fills reply on success. The error is returned as is.
func (r *unaryResult) await(ctx context.Context, reply any, invoke func(context.Context) error) error {
	if err := invoke(ctx); err != nil {
		r.failed(ctx, Failed(err))
		return err
	}
	r.completed(Succeeded(reply))
	return nil
}

func (r *unaryResult) completed(outcome Outcome) {
	if !r.cfg.LogEnabled {
		return
	}
	var fields []logger.Field
	if r.cfg.LogResponses {
		fields = payloadFields(responseKey, outcome.Value, r.cfg)
	}
	fields = append(fields, r.call.elapsedFields()...)
	r.log.Log(r.cfg.LogLevel, msgUnaryCompleted, fields...)
}

func (r *unaryResult) failed(ctx context.Context, outcome Outcome) {
	outcome.tagSpan(ctx)
	msg := msgUnaryFailed
	if !outcome.Classified {
		msg = msgUnaryUnexpected
	}
	fields := append(outcome.fields(), r.call.elapsedFields()...)
	r.log.Log(r.cfg.failureLevel(outcome), msg, fields...)
}
