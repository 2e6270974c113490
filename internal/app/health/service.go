package health

import (
	"context"
	"encoding/json"
	"math"
	"net/http"

	"github.com/evcharge/charging-stations-api/internal/ports/out/invoker"
)

// Result is the health contract shared with the remote health function.
type Result struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
}

// Checker reports service health.
type Checker interface {
	Check(ctx context.Context) Result
}

// StaticChecker always reports the gateway itself as running.
type StaticChecker struct{}

func (StaticChecker) Check(context.Context) Result {
	return Result{Code: http.StatusOK, Status: "running"}
}

// RemoteChecker asks a remote function for health.
type RemoteChecker struct {
	inv      invoker.Invoker
	function string
}

func NewRemoteChecker(inv invoker.Invoker, function string) *RemoteChecker {
	return &RemoteChecker{inv: inv, function: function}
}

var badResponse = Result{Code: http.StatusBadGateway, Status: "bad-health-response"}

// Check sends {"action":"health"} and expects {"code":<int>,"status":<string>}
// back. Anything else is reported as a bad gateway.
func (c *RemoteChecker) Check(ctx context.Context) Result {
	raw, err := c.inv.InvokeJSON(ctx, c.function, map[string]string{"action": "health"})
	if err != nil {
		return Result{Code: http.StatusBadGateway, Status: "unreachable"}
	}
	var probe struct {
		Code   *float64 `json:"code"`
		Status *string  `json:"status"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil || probe.Code == nil || probe.Status == nil {
		return badResponse
	}
	code := *probe.Code
	if code != math.Trunc(code) || code < 100 || code > 599 {
		return badResponse
	}
	return Result{Code: int(code), Status: *probe.Status}
}
