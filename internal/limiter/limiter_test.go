package limiter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestNewRateLimiter(t *testing.T) {
	// Disabled
	l := NewRateLimiter(Config{RPS: 0})
	assert.False(t, l.Enabled())

	// Enabled
	l = NewRateLimiter(Config{RPS: 10, Burst: 20})
	assert.True(t, l.Enabled())
	assert.Equal(t, float64(10), float64(l.limiter.Limit()))
	assert.Equal(t, 20, l.limiter.Burst())

	// Burst defaults to RPS
	l = NewRateLimiter(Config{RPS: 7})
	assert.Equal(t, 7, l.limiter.Burst())
}

func TestRateLimiter_UnaryInterceptor(t *testing.T) {
	l := NewRateLimiter(Config{RPS: 1, Burst: 1})
	interceptor := l.UnaryInterceptor()

	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return "ok", nil
	}

	// 1st request consumes the only token
	resp, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{}, handler)
	assert.NoError(t, err)
	assert.Equal(t, "ok", resp)

	// The next token is a second away, beyond the deadline
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = interceptor(ctx, nil, &grpc.UnaryServerInfo{}, handler)
	st, ok := status.FromError(err)
	assert.True(t, ok)
	assert.Contains(t, []codes.Code{codes.ResourceExhausted, codes.DeadlineExceeded}, st.Code())
}

type fakeStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeStream) Context() context.Context { return f.ctx }

func TestRateLimiter_StreamInterceptor(t *testing.T) {
	l := NewRateLimiter(Config{RPS: 1, Burst: 1})
	interceptor := l.StreamInterceptor()

	calls := 0
	handler := func(srv interface{}, ss grpc.ServerStream) error {
		calls++
		return nil
	}

	assert.NoError(t, interceptor(nil, &fakeStream{ctx: context.Background()}, &grpc.StreamServerInfo{}, handler))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := interceptor(nil, &fakeStream{ctx: ctx}, &grpc.StreamServerInfo{}, handler)
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRateLimiter_Disabled(t *testing.T) {
	l := NewRateLimiter(Config{})
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return "ok", nil
	}
	for i := 0; i < 100; i++ {
		_, err := l.UnaryInterceptor()(context.Background(), nil, &grpc.UnaryServerInfo{}, handler)
		assert.NoError(t, err)
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	l := NewRateLimiter(Config{RPS: 1, Burst: 2})
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codesSeen := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codesSeen = append(codesSeen, rec.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codesSeen)
}
