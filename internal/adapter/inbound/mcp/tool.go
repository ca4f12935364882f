// Package mcp exposes PDP.Evaluate as an MCP tool over newline-delimited
// JSON-RPC 2.0. A "tools/call" naming ToolName is itself the
// access-control decision, handed back as the call's result rather than
// enforced as a gate in front of some other call.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"

	"github.com/xacmlgo/pdp/internal/domain/decision"
	"github.com/xacmlgo/pdp/internal/domain/evalctx"
	"github.com/xacmlgo/pdp/internal/domain/policytree"
	"github.com/xacmlgo/pdp/internal/domain/value"
	"github.com/xacmlgo/pdp/internal/service/pdp"
)

// ToolName is the only MCP tool this server answers "tools/call" for.
const ToolName = "xacml_evaluate"

// JSON-RPC error codes this server returns.
const (
	errCodeParseError     = -32700
	errCodeMethodNotFound = -32601
	errCodeInvalidParams  = -32602
)

// CallResult is the "tools/call" result payload: the same
// decision/obligations/reason shape the HTTP façade's DecisionResponse
// returns at GET /getDecision, so a caller driving both transports sees
// one wire contract for "what did the PDP decide".
type CallResult struct {
	Decision    string           `json:"decision"`
	Obligations []ObligationJSON `json:"obligations"`
	Reason      []string         `json:"reason"`
}

// ObligationJSON is the wire shape of one resolved obligation.
type ObligationJSON struct {
	ID          string            `json:"id"`
	Assignments map[string]string `json:"assignments,omitempty"`
}

// toolCallParams is the "params" object of a "tools/call" request per
// the MCP tool-call convention: a tool name plus a flat arguments map.
type toolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ToolServer answers "tools/call" JSON-RPC requests by evaluating them
// against engine. It has no other state: every call is independent, the
// same non-blocking-core contract PDP.Evaluate itself gives.
type ToolServer struct {
	engine *pdp.PDP
}

// NewToolServer builds a ToolServer backed by engine.
func NewToolServer(engine *pdp.PDP) *ToolServer {
	return &ToolServer{engine: engine}
}

// Serve reads newline-delimited JSON-RPC messages from src and writes
// one response per message to dst, blocking until src returns EOF; ctx
// is checked before each message is handled, so a cancelled ctx ends the
// loop once the next line arrives. Framing follows the MCP stdio transport
// convention: one JSON value per line, a large scanner buffer since a
// Request carrying XML-shaped attribute values can be considerably
// bigger than a typical tool-call payload.
func (s *ToolServer) Serve(ctx context.Context, src io.Reader, dst io.Writer) error {
	scanner := bufio.NewScanner(src)
	buf := make([]byte, 0, 256*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := append([]byte(nil), scanner.Bytes()...)
		out := s.HandleMessage(line)
		if out == nil {
			continue
		}
		if _, err := dst.Write(out); err != nil {
			return fmt.Errorf("mcp: write response: %w", err)
		}
		if _, err := dst.Write([]byte("\n")); err != nil {
			return fmt.Errorf("mcp: write newline: %w", err)
		}
	}
	return scanner.Err()
}

// HandleMessage decodes one JSON-RPC request, evaluates it if it names
// ToolName, and returns the encoded JSON-RPC response bytes. Non-call
// messages (responses, notifications) and decode failures produce a
// JSON-RPC error response rather than an error return, so a caller
// driving this over a framed transport never has to special-case a Go
// error against the wire protocol's own error shape.
func (s *ToolServer) HandleMessage(raw []byte) []byte {
	decoded, err := jsonrpc.DecodeMessage(raw)
	if err != nil {
		return encodeErrorWithoutID(errCodeParseError, "Parse error")
	}

	req, ok := decoded.(*jsonrpc.Request)
	if !ok || !req.IsCall() {
		return encodeErrorWithoutID(errCodeInvalidRequest(req), "Invalid Request")
	}

	if req.Method != "tools/call" {
		return s.encodeError(req.ID, errCodeMethodNotFound, "Method not found")
	}

	var params toolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.encodeError(req.ID, errCodeInvalidParams, "Invalid params")
	}
	if params.Name != ToolName {
		return s.encodeError(req.ID, errCodeInvalidParams, "unknown tool "+params.Name)
	}

	evalReq := requestFromArguments(params.Arguments)
	resp := s.engine.Evaluate(evalReq)

	result := CallResult{
		Decision:    resp.Decision.DecisionString(),
		Obligations: obligationsToJSON(resp.Obligations),
		Reason:      reasonFromStatus(resp.Status),
	}
	resultBytes, err := json.Marshal(result)
	if err != nil {
		return s.encodeError(req.ID, -32603, "Internal error")
	}

	out, err := jsonrpc.EncodeMessage(&jsonrpc.Response{ID: req.ID, Result: resultBytes})
	if err != nil {
		return s.encodeError(req.ID, -32603, "Internal error")
	}
	return out
}

func errCodeInvalidRequest(req *jsonrpc.Request) int {
	if req == nil {
		return errCodeParseError
	}
	return -32600
}

// encodeErrorWithoutID builds an error response for a message that
// could not be decoded far enough to recover a call ID.
func encodeErrorWithoutID(code int, message string) []byte {
	out, err := jsonrpc.EncodeMessage(&jsonrpc.Response{
		Error: &jsonrpc.Error{Code: int64(code), Message: message},
	})
	if err != nil {
		return nil
	}
	return out
}

func (s *ToolServer) encodeError(id jsonrpc.ID, code int, message string) []byte {
	out, err := jsonrpc.EncodeMessage(&jsonrpc.Response{
		ID:    id,
		Error: &jsonrpc.Error{Code: int64(code), Message: message},
	})
	if err != nil {
		return nil
	}
	return out
}

// requestFromArguments builds an evalctx.Request from a "tools/call"
// arguments map, using the same flat "<category>.<attributeId>" key
// convention as the HTTP façade's requestFromQuery (a bare "action" key
// names the action-id attribute; subject/resource/environment prefixes
// route to their category; everything else defaults to resource).
// Every value is an xs:string attribute — a caller needing a typed
// attribute should drive the XML Request path (xacmlxml package)
// instead, exactly as the HTTP façade's doc comment already notes.
func requestFromArguments(args map[string]interface{}) *evalctx.Request {
	req := evalctx.NewRequest()
	groups := map[string]*evalctx.AttributesGroup{
		evalctx.CategorySubject:     {Category: evalctx.CategorySubject},
		evalctx.CategoryResource:    {Category: evalctx.CategoryResource},
		evalctx.CategoryAction:      {Category: evalctx.CategoryAction},
		evalctx.CategoryEnvironment: {Category: evalctx.CategoryEnvironment},
	}

	for key, raw := range args {
		vals := stringValues(raw)
		if len(vals) == 0 {
			continue
		}
		category, attrID := splitArgumentKey(key)
		g := groups[category]
		attr := evalctx.Attribute{
			Category:        category,
			ID:              attrID,
			DataType:        value.TypeString,
			IncludeInResult: true,
		}
		for _, v := range vals {
			attr.Values.Values = append(attr.Values.Values, value.MustNew(value.TypeString, v))
		}
		attr.Values.Type = value.TypeString
		g.Attributes = append(g.Attributes, attr)
	}

	for _, g := range groups {
		req.AddGroup(g)
	}
	return req
}

// stringValues normalizes one decoded JSON argument value (string,
// number, bool, or an array of those) into its string-attribute bag
// representation.
func stringValues(raw interface{}) []string {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			out = append(out, stringValues(elem)...)
		}
		return out
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		s := string(b)
		if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
			var unquoted string
			if json.Unmarshal(b, &unquoted) == nil {
				return []string{unquoted}
			}
		}
		return []string{s}
	}
}

func splitArgumentKey(key string) (category, attrID string) {
	if key == "action" {
		return evalctx.CategoryAction, "action-id"
	}
	if idx := strings.IndexByte(key, '.'); idx > 0 {
		prefix, rest := key[:idx], key[idx+1:]
		switch prefix {
		case "subject":
			return evalctx.CategorySubject, rest
		case "resource":
			return evalctx.CategoryResource, rest
		case "environment", "env":
			return evalctx.CategoryEnvironment, rest
		}
	}
	return evalctx.CategoryResource, key
}

func obligationsToJSON(obligations []policytree.ResolvedObligation) []ObligationJSON {
	out := make([]ObligationJSON, 0, len(obligations))
	for _, o := range obligations {
		assigns := make(map[string]string, len(o.Assignments))
		for _, a := range o.Assignments {
			assigns[a.AttributeID] = a.Value.String()
		}
		out = append(out, ObligationJSON{ID: o.ID, Assignments: assigns})
	}
	return out
}

// reasonFromStatus mirrors the HTTP façade's reasonFromStatus: nil on a
// clean OK status, one line per missing-attribute detail, otherwise the
// status message or code.
func reasonFromStatus(st decision.Status) []string {
	if st.Code == decision.StatusOK {
		return nil
	}
	if len(st.MissingAttrs) > 0 {
		lines := make([]string, 0, len(st.MissingAttrs))
		for _, m := range st.MissingAttrs {
			lines = append(lines, "missing attribute "+m.AttrID+" (category "+m.Category+", type "+m.DataType+")")
		}
		return lines
	}
	if st.Message != "" {
		return []string{st.Message}
	}
	return []string{st.Code}
}
