package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/23skdu/smellsense/internal/dashboard"
	flightsvc "github.com/23skdu/smellsense/internal/flight"
	"github.com/23skdu/smellsense/internal/signature"
)

// Client is a thin wrapper around flight.Client that speaks the smellsense
// tickets and actions.
type Client struct {
	fc      flight.Client
	timeout time.Duration
}

// New dials addr without transport security.
func New(addr string) (*Client, error) {
	fc, err := flight.NewClientWithMiddleware(addr, nil, nil,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	return &Client{fc: fc, timeout: 30 * time.Second}, nil
}

// NewFromConn wraps an existing gRPC connection. Closing the Client closes conn.
func NewFromConn(conn grpc.ClientConnInterface) *Client {
	return &Client{fc: flight.NewClientFromConn(conn, nil), timeout: 30 * time.Second}
}

// Close closes the underlying connection
func (c *Client) Close() error {
	return c.fc.Close()
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Signatures fetches the reference table via DoGet
func (c *Client) Signatures(ctx context.Context) ([]signature.Signature, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	stream, err := c.fc.DoGet(ctx, &flight.Ticket{Ticket: []byte(flightsvc.TicketSignatures)})
	if err != nil {
		return nil, err
	}
	rdr, err := flight.NewRecordReader(stream)
	if err != nil {
		return nil, err
	}
	defer rdr.Release()

	var out []signature.Signature
	for rdr.Next() {
		sigs, err := signature.FromRecord(rdr.Record())
		if err != nil {
			return nil, err
		}
		out = append(out, sigs...)
	}
	if err := rdr.Err(); err != nil && err != io.EOF {
		return nil, err
	}
	return out, nil
}

// Compare scores levels on the server and returns the full result
func (c *Client) Compare(ctx context.Context, levels []float64) (*dashboard.Result, error) {
	var res dashboard.Result
	if err := c.action(ctx, flightsvc.ActionCompare, flightsvc.CompareRequest{Levels: levels}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// BestMatch returns only the closest signature and its score
func (c *Client) BestMatch(ctx context.Context, levels []float64) (*flightsvc.BestMatchResponse, error) {
	var res flightsvc.BestMatchResponse
	if err := c.action(ctx, flightsvc.ActionBestMatch, flightsvc.CompareRequest{Levels: levels}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Defaults returns the VOC names and the default slider levels
func (c *Client) Defaults(ctx context.Context) (*flightsvc.DefaultsResponse, error) {
	var res flightsvc.DefaultsResponse
	if err := c.action(ctx, flightsvc.ActionDefaults, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) action(ctx context.Context, typ string, req, out interface{}) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var body []byte
	if req != nil {
		var err error
		if body, err = json.Marshal(req); err != nil {
			return err
		}
	}

	stream, err := c.fc.DoAction(ctx, &flight.Action{Type: typ, Body: body})
	if err != nil {
		return err
	}
	res, err := stream.Recv()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(res.Body, out); err != nil {
		return fmt.Errorf("decode %s result: %w", typ, err)
	}
	return nil
}
