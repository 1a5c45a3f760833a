package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/piccolo-io/piccolo/api/pullpiri"
	"github.com/piccolo-io/piccolo/pkg/errdefs"
)

// Client wraps the master's ApiServerService for agents and CLI commands.
type Client struct {
	conn   *grpc.ClientConn
	client pullpiri.ApiServerClient
}

// NewClient dials the master API at addr.
func NewClient(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to dial master at %s: %w", addr, err)
	}
	return &Client{
		conn:   conn,
		client: pullpiri.NewApiServerClient(conn),
	}, nil
}

// Raw returns the underlying service client.
func (c *Client) Raw() pullpiri.ApiServerClient {
	return c.client
}

// RegisterNode registers this node and returns the response.
func (c *Client) RegisterNode(ctx context.Context, req *pullpiri.RegisterNodeRequest) (*pullpiri.RegisterNodeResponse, error) {
	return c.client.RegisterNode(ctx, req)
}

// Heartbeat sends one liveness report.
func (c *Client) Heartbeat(ctx context.Context, req *pullpiri.HeartbeatRequest) error {
	_, err := c.client.Heartbeat(ctx, req)
	return err
}

// ReportState reports an explicit resource state.
func (c *Client) ReportState(ctx context.Context, kind, name, state string) error {
	_, err := c.client.ReportState(ctx, &pullpiri.ReportStateRequest{
		Kind:  kind,
		Name:  name,
		State: state,
	})
	return err
}

// Close tears down the channel.
func (c *Client) Close() error {
	return c.conn.Close()
}

// ActionController is the reconcile client for the external action
// controller. It satisfies the state manager's Reconciler contract.
type ActionController struct {
	conn   *grpc.ClientConn
	client pullpiri.ActionControllerClient
}

// NewActionController dials the action controller at addr.
func NewActionController(addr string) (*ActionController, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to dial action controller at %s: %w", addr, err)
	}
	return &ActionController{
		conn:   conn,
		client: pullpiri.NewActionControllerClient(conn),
	}, nil
}

// Reconcile requests remediation of a package.
func (a *ActionController) Reconcile(ctx context.Context, packageName string) error {
	resp, err := a.client.Reconcile(ctx, &pullpiri.ReconcileRequest{PackageName: packageName})
	if err != nil {
		return errdefs.Unavailable(err, "reconcile %s", packageName)
	}
	if resp.Status != pullpiri.StatusOk {
		return errdefs.New(errdefs.Code(resp.Status), "reconcile %s rejected: %s", packageName, resp.Message)
	}
	return nil
}

// Close tears down the channel.
func (a *ActionController) Close() error {
	return a.conn.Close()
}
