package moonraker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Request paths used by roost.
const (
	PathReadiness  = "/printer/objects/query?webhooks"
	PathPrinter    = "/api/printer"
	PathProgress   = "/printer/objects/query?virtual_sdcard"
	pathGcodeQuery = "/printer/gcode/script?script="
	macroPrefix    = "gcode_macro "
)

// ErrNoData means the response parsed but lacked the expected object.
var ErrNoData = errors.New("no data in response")

// StatusMacroPath is the object query for a status macro such as _CROWPANEL_STATUS.
func StatusMacroPath(macro string) string {
	return "/printer/objects/query?gcode_macro%20" + url.QueryEscape(strings.TrimSpace(macro))
}

// GcodePath is the script-execution path for code, with spaces as %20.
func GcodePath(code string) string {
	return pathGcodeQuery + strings.ReplaceAll(url.QueryEscape(code), "+", "%20")
}

// Fields are pointers so a missing key is distinguishable from a zero value.

// WebhooksStatus mirrors the webhooks printer object.
type WebhooksStatus struct {
	State        *string `json:"state"`
	StateMessage *string `json:"state_message"`
}

// PrinterFlags mirrors state.flags of /api/printer.
type PrinterFlags struct {
	Operational   *bool `json:"operational"`
	Paused        *bool `json:"paused"`
	Printing      *bool `json:"printing"`
	Cancelling    *bool `json:"cancelling"`
	Pausing       *bool `json:"pausing"`
	Error         *bool `json:"error"`
	Ready         *bool `json:"ready"`
	ClosedOrError *bool `json:"closedOrError"`
}

// Temperature is one heater reading.
type Temperature struct {
	Actual *float64 `json:"actual"`
	Target *float64 `json:"target"`
}

// Complete reports whether both readings are present.
func (t Temperature) Complete() bool {
	return t.Actual != nil && t.Target != nil
}

// PrinterInfo mirrors /api/printer (OctoPrint-compatible endpoint).
type PrinterInfo struct {
	State *struct {
		Text  *string       `json:"text"`
		Flags *PrinterFlags `json:"flags"`
	} `json:"state"`
	Temperature map[string]json.RawMessage `json:"temperature"`
}

// Heater decodes one entry of the temperature object. A missing or malformed
// entry yields ok=false.
func (p *PrinterInfo) Heater(name string) (Temperature, bool) {
	if p == nil || p.Temperature == nil {
		return Temperature{}, false
	}
	raw, ok := p.Temperature[name]
	if !ok {
		return Temperature{}, false
	}
	var t Temperature
	if err := json.Unmarshal(raw, &t); err != nil {
		return Temperature{}, false
	}
	return t, t.Complete()
}

// VirtualSDCard mirrors the virtual_sdcard printer object.
type VirtualSDCard struct {
	Progress *float64 `json:"progress"`
	FilePath *string  `json:"file_path"`
	IsActive *bool    `json:"is_active"`
}

// StatusMacro mirrors the variables exposed by the panel status macro.
type StatusMacro struct {
	Homing        *bool `json:"homing"`
	Probing       *bool `json:"probing"`
	Qgling        *bool `json:"qgling"`
	HeatingNozzle *bool `json:"heating_nozzle"`
	HeatingBed    *bool `json:"heating_bed"`
}

type objectQueryResponse struct {
	Result *struct {
		Status map[string]json.RawMessage `json:"status"`
	} `json:"result"`
}

// OutcomeError wraps a non-success Result so callers can inspect it.
type OutcomeError struct {
	Path   string
	Result Result
}

func (e *OutcomeError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.Path, e.Result)
}

func (e *OutcomeError) Unwrap() error {
	return e.Result.Err
}

// QueryReadiness returns webhooks.state ("ready", "startup", "shutdown", ...).
func (c *Client) QueryReadiness(ctx context.Context) (string, error) {
	var hooks WebhooksStatus
	if err := c.queryObject(ctx, PathReadiness, "webhooks", &hooks); err != nil {
		return "", err
	}
	if hooks.State == nil {
		return "", fmt.Errorf("webhooks.state: %w", ErrNoData)
	}
	return *hooks.State, nil
}

// QueryPrinter fetches flags and temperatures.
func (c *Client) QueryPrinter(ctx context.Context) (*PrinterInfo, error) {
	var info PrinterInfo
	if err := c.getJSON(ctx, PathPrinter, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// QueryProgress fetches the virtual_sdcard object.
func (c *Client) QueryProgress(ctx context.Context) (*VirtualSDCard, error) {
	var sd VirtualSDCard
	if err := c.queryObject(ctx, PathProgress, "virtual_sdcard", &sd); err != nil {
		return nil, err
	}
	return &sd, nil
}

// QueryStatusMacro fetches the variables of a status macro. A printer without
// the macro defined yields ErrNoData.
func (c *Client) QueryStatusMacro(ctx context.Context, macro string) (*StatusMacro, error) {
	var sm StatusMacro
	if err := c.queryObject(ctx, StatusMacroPath(macro), macroPrefix+strings.TrimSpace(macro), &sm); err != nil {
		return nil, err
	}
	return &sm, nil
}

func (c *Client) queryObject(ctx context.Context, path, object string, dest any) error {
	var resp objectQueryResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return err
	}
	if resp.Result == nil || resp.Result.Status == nil {
		return fmt.Errorf("result.status: %w", ErrNoData)
	}
	raw, ok := resp.Result.Status[object]
	if !ok || string(raw) == "null" {
		return fmt.Errorf("%s: %w", object, ErrNoData)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s: %w", object, err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, dest any) error {
	res := c.Execute(ctx, http.MethodGet, path)
	if res.Outcome != OutcomeSuccess {
		return &OutcomeError{Path: path, Result: res}
	}
	if err := json.Unmarshal([]byte(res.Body), dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
