package rpcjson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/atvirokodosprendimai/fundref/internal/application"
	"github.com/atvirokodosprendimai/fundref/internal/domain"
)

type Server struct {
	service  *application.ReferentialService
	listener net.Listener
	path     string
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

type response struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
	ID      any       `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func Start(path string, service *application.ReferentialService) (*Server, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("rpc socket path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		_ = os.Remove(path)
		return nil, err
	}

	s := &Server{service: service, listener: ln, path: path}
	go s.serve()
	return s, nil
}

func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) Close() error {
	err := s.listener.Close()
	_ = os.Remove(s.path)
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			_ = enc.Encode(response{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "parse error"}, ID: nil})
			return
		}

		resp := s.dispatch(context.Background(), req)
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

type pageParams struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

func (s *Server) dispatch(ctx context.Context, req request) response {
	if req.JSONRPC != "2.0" || strings.TrimSpace(req.Method) == "" {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32600, Message: "invalid request"}, ID: req.ID}
	}

	switch req.Method {
	case "funds.get":
		var p struct {
			FundID string `json:"fund_id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.GetFund(ctx, p.FundID)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return result(req.ID, out)
	case "funds.get_by_code":
		var p struct {
			FundCode string `json:"fund_code"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.GetFundByCode(ctx, p.FundCode)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return result(req.ID, out)
	case "funds.search":
		var p struct {
			Filters domain.Filters `json:"filters"`
			pageParams
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.SearchFunds(ctx, p.Filters, p.Page, p.PageSize)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return result(req.ID, out)
	case "funds.create":
		var p domain.Fund
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.CreateFund(ctx, p)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return result(req.ID, out)
	case "funds.update":
		var p struct {
			FundID string         `json:"fund_id"`
			Attrs  map[string]any `json:"attrs"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.UpdateFund(ctx, p.FundID, p.Attrs)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return result(req.ID, out)
	case "hierarchy.children":
		var p struct {
			FundID string `json:"fund_id"`
			Depth  int    `json:"depth"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.FundDescendants(ctx, p.FundID, p.Depth)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return result(req.ID, out)
	case "hierarchy.parents":
		var p struct {
			ID    string `json:"id"`
			Depth int    `json:"depth"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.FundAncestors(ctx, p.ID, p.Depth)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return result(req.ID, out)
	case "hierarchy.full":
		var p struct {
			ID    string `json:"id"`
			Depth int    `json:"depth"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.FundHierarchy(ctx, p.ID, p.Depth)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return result(req.ID, out)
	case "legal.get":
		var p struct {
			LEID string `json:"le_id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.GetLegalEntity(ctx, p.LEID)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return result(req.ID, out)
	case "legal.search":
		var p struct {
			Filters domain.Filters `json:"filters"`
			pageParams
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.SearchLegalEntities(ctx, p.Filters, p.Page, p.PageSize)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return result(req.ID, out)
	case "legal.create":
		var p domain.LegalEntity
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.CreateLegalEntity(ctx, p)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return result(req.ID, out)
	case "legal.update":
		var p struct {
			LEID  string         `json:"le_id"`
			Attrs map[string]any `json:"attrs"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.UpdateLegalEntity(ctx, p.LEID, p.Attrs)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return result(req.ID, out)
	case "legal.delete":
		var p struct {
			LEID string `json:"le_id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		if err := s.service.DeleteLegalEntity(ctx, p.LEID); err != nil {
			return errorResponse(req.ID, err)
		}
		return result(req.ID, map[string]any{"ok": true})
	case "management.get":
		var p struct {
			MgmtID string `json:"mgmt_id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.GetManagementEntity(ctx, p.MgmtID)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return result(req.ID, out)
	case "management.search":
		var p struct {
			Filters domain.Filters `json:"filters"`
			pageParams
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.SearchManagementEntities(ctx, p.Filters, p.Page, p.PageSize)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return result(req.ID, out)
	case "management.update":
		var p struct {
			MgmtID string         `json:"mgmt_id"`
			Attrs  map[string]any `json:"attrs"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.UpdateManagementEntity(ctx, p.MgmtID, p.Attrs)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return result(req.ID, out)
	case "management.create":
		var p domain.ManagementEntity
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.CreateManagementEntity(ctx, p)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return result(req.ID, out)
	case "management.funds":
		var p struct {
			MgmtID string `json:"mgmt_id"`
			pageParams
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.FundsByManagementEntity(ctx, p.MgmtID, p.Page, p.PageSize)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return result(req.ID, out)
	case "subfunds.get":
		var p struct {
			SubfundID string `json:"subfund_id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.GetSubFund(ctx, p.SubfundID)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return result(req.ID, out)
	case "subfunds.search":
		var p struct {
			Filters domain.Filters `json:"filters"`
			pageParams
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.SearchSubFunds(ctx, p.Filters, p.Page, p.PageSize)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return result(req.ID, out)
	case "subfunds.update":
		var p struct {
			SubfundID string         `json:"subfund_id"`
			Attrs     map[string]any `json:"attrs"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.UpdateSubFund(ctx, p.SubfundID, p.Attrs)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return result(req.ID, out)
	case "subfunds.create":
		var p domain.SubFund
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.CreateSubFund(ctx, p)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return result(req.ID, out)
	case "shareclasses.get":
		var p struct {
			SCID string `json:"sc_id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.GetShareClass(ctx, p.SCID)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return result(req.ID, out)
	case "shareclasses.create":
		var p domain.ShareClass
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.CreateShareClass(ctx, p)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return result(req.ID, out)
	case "shareclasses.update":
		var p struct {
			SCID  string         `json:"sc_id"`
			Attrs map[string]any `json:"attrs"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.UpdateShareClass(ctx, p.SCID, p.Attrs)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return result(req.ID, out)
	case "shareclasses.list":
		var p struct {
			OwnerID string `json:"owner_id"`
			pageParams
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		filters := domain.Filters{}
		if p.OwnerID != "" {
			filters["owner_id"] = p.OwnerID
		}
		out, err := s.service.SearchShareClasses(ctx, filters, p.Page, p.PageSize)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return result(req.ID, out)
	case "stats.funds":
		out, err := s.service.FundStatistics(ctx)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return result(req.ID, out)
	case "stats.management":
		out, err := s.service.ManagementStatistics(ctx)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return result(req.ID, out)
	case "stats.dashboard":
		out, err := s.service.DashboardStatistics(ctx)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return result(req.ID, out)
	default:
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32601, Message: "method not found"}, ID: req.ID}
	}
}

func decodeParams(raw json.RawMessage, out any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func result(id any, payload any) response {
	return response{JSONRPC: "2.0", Result: payload, ID: id}
}

func invalidParams(id any) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: -32602, Message: "invalid params"}, ID: id}
}

func errorResponse(id any, err error) response {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return response{JSONRPC: "2.0", Error: &rpcError{Code: 40400, Message: err.Error()}, ID: id}
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrReferenceNotFound):
		return response{JSONRPC: "2.0", Error: &rpcError{Code: 40000, Message: err.Error()}, ID: id}
	case errors.Is(err, domain.ErrStillReferenced), errors.Is(err, domain.ErrAlreadyExists):
		return response{JSONRPC: "2.0", Error: &rpcError{Code: 40900, Message: err.Error()}, ID: id}
	default:
		return response{JSONRPC: "2.0", Error: &rpcError{Code: 50000, Message: fmt.Sprintf("internal error: %v", err)}, ID: id}
	}
}
