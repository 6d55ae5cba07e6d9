package interceptors

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	"google.golang.org/grpc"

	"github.com/rainbow-me/grpc-client-logging/common/logger"
	"github.com/rainbow-me/grpc-client-logging/grpc/correlation"
)

type streamState int

const (
	streamIdle streamState = iota
	streamAdvancing
	streamElementReady
	streamExhausted
	streamFailed
)

func (s streamState) terminal() bool {
	return s == streamExhausted || s == streamFailed
}

// loggingClientStream wraps a server-streaming grpc.ClientStream. Every received message is
// logged with its running count, and the end of the stream is logged exactly once.
// Like the stream it wraps, it must not be used by concurrent receivers.
type loggingClientStream struct {
	grpc.ClientStream

	ctx   context.Context
	call  *CallContext
	log   *logger.Logger
	cfg   *LoggingInterceptorConfig
	scope *correlation.Scope
	stop  func() bool

	state    streamState
	started  bool
	received int
}

func newLoggingClientStream(
	ctx context.Context,
	cs grpc.ClientStream,
	call *CallContext,
	log *logger.Logger,
	cfg *LoggingInterceptorConfig,
	scope *correlation.Scope,
) *loggingClientStream {
	return &loggingClientStream{
		ClientStream: cs,
		ctx:          ctx,
		call:         call,
		log:          log,
		cfg:          cfg,
		scope:        scope,
		// abandoned streams end with their context
		stop: context.AfterFunc(ctx, scope.Release),
	}
}

func (s *loggingClientStream) RecvMsg(m any) error {
	if s.state.terminal() {
		return s.ClientStream.RecvMsg(m)
	}
	s.start(nil)

	s.state = streamAdvancing
	err := s.ClientStream.RecvMsg(m)
	switch {
	case err == nil:
		s.received++
		s.state = streamElementReady
		s.messageReceived(m)
		return nil
	case errors.Is(err, io.EOF):
		s.state = streamExhausted
		s.completed()
		s.release()
		return err
	default:
		s.state = streamFailed
		s.failed(Failed(err))
		s.release()
		return err
	}
}

// SendMsg and CloseSend are issued by the generated client right after the stream is opened,
// so their failures are initialization failures.
func (s *loggingClientStream) SendMsg(m any) error {
	s.start(m)
	err := s.ClientStream.SendMsg(m)
	if err != nil {
		s.initFailed(err)
	}
	return err
}

func (s *loggingClientStream) CloseSend() error {
	err := s.ClientStream.CloseSend()
	if err != nil {
		s.initFailed(err)
	}
	return err
}

func (s *loggingClientStream) initFailed(err error) {
	if s.state.terminal() {
		return
	}
	s.start(nil)
	s.state = streamFailed
	logStreamInitFailure(s.ctx, s.log, s.cfg, s.call, Failed(err))
	s.release()
}

// start logs the starting line once, with the request when the first call is SendMsg.
func (s *loggingClientStream) start(req any) {
	if s.started {
		return
	}
	s.started = true
	logStreamStart(s.log, s.cfg, req)
}

func (s *loggingClientStream) messageReceived(m any) {
	if !s.cfg.LogEnabled {
		return
	}
	fields := []logger.Field{logger.Int(messageCountKey, s.received)}
	if s.cfg.LogMessages {
		fields = append(fields, payloadFields(responseKey, m, s.cfg)...)
	}
	s.log.Log(s.cfg.LogLevel, msgStreamMessage, fields...)
}

func (s *loggingClientStream) completed() {
	if !s.cfg.LogEnabled {
		return
	}
	fields := append([]logger.Field{logger.Int(messageCountKey, s.received)}, s.call.elapsedFields()...)
	s.log.Log(s.cfg.LogLevel, msgStreamCompleted, fields...)
}

func (s *loggingClientStream) failed(outcome Outcome) {
	outcome.tagSpan(s.ctx)
	msg := msgStreamFailed
	if !outcome.Classified {
		msg = msgStreamUnexpected
	}
	fields := append(outcome.fields(), logger.Int(messageCountKey, s.received))
	fields = append(fields, s.call.elapsedFields()...)
	s.log.Log(s.cfg.failureLevel(outcome), msg, fields...)
}

func (s *loggingClientStream) release() {
	s.stop()
	s.scope.Release()
}
