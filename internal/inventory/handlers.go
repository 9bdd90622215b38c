package inventory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/zombor/quantify/internal/billparse"
	"github.com/zombor/quantify/internal/scanning"
)

const maxJSONBody = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrStockExists), errors.Is(err, ErrBillApplied):
		return http.StatusConflict
	case errors.Is(err, scanning.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrInvalidStock),
		errors.Is(err, ErrInvalidOperation),
		errors.Is(err, ErrNoItems):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "Internal server error"
	}
	writeJSON(w, code, errorBody{Error: msg})
}

// readBody validates the JSON request body against schema and decodes it into dst
func (s *Server) readBody(w http.ResponseWriter, r *http.Request, schema string, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		return fmt.Errorf("%w: reading body: %v", ErrInvalidRequest, err)
	}
	return s.schemas.decode(schema, body, dst)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

func (s *Server) handleAPIIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "quantify",
		"version": s.version,
		"endpoints": []string{
			"GET /health",
			"GET /api/stocks",
			"POST /api/stocks",
			"GET /api/stocks/export",
			"PATCH /api/stocks/batch",
			"GET /api/stocks/{sku}",
			"PUT /api/stocks/{sku}",
			"DELETE /api/stocks/{sku}",
			"POST /api/items/validate",
			"GET /api/bills",
			"POST /api/bills",
			"POST /api/bills/text",
			"GET /api/bills/{id}",
			"DELETE /api/bills/{id}",
			"GET /api/bills/{id}/file",
			"POST /api/bills/{id}/apply",
		},
	})
}

// stockQuery reads the listing filters from the query string
func stockQuery(r *http.Request) (StockQuery, error) {
	values := r.URL.Query()
	q := StockQuery{
		Search:    values.Get("search"),
		Color:     values.Get("color"),
		Size:      values.Get("size"),
		SortBy:    values.Get("sort_by"),
		SortOrder: values.Get("sort_order"),
	}

	ints := []struct {
		name string
		dst  **int
	}{
		{"min_quantity", &q.MinQuantity},
		{"max_quantity", &q.MaxQuantity},
	}
	for _, p := range ints {
		raw := values.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, fmt.Errorf("%w: %s must be an integer", ErrInvalidRequest, p.name)
		}
		*p.dst = &n
	}

	var err error
	if raw := values.Get("page"); raw != "" {
		if q.Page, err = strconv.Atoi(raw); err != nil {
			return q, fmt.Errorf("%w: page must be an integer", ErrInvalidRequest)
		}
	}
	if raw := values.Get("limit"); raw != "" {
		if q.Limit, err = strconv.Atoi(raw); err != nil {
			return q, fmt.Errorf("%w: limit must be an integer", ErrInvalidRequest)
		}
	}
	return q, nil
}

func (s *Server) handleListStocks(w http.ResponseWriter, r *http.Request) {
	q, err := stockQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.service.ListStocks(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleCreateStock(w http.ResponseWriter, r *http.Request) {
	var req Stock
	if err := s.readBody(w, r, schemaCreateStock, &req); err != nil {
		writeError(w, r, err)
		return
	}
	stock, err := s.service.CreateStock(req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, stock)
}

func (s *Server) handleGetStock(w http.ResponseWriter, r *http.Request) {
	stock, err := s.service.GetStock(r.PathValue("sku"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stock)
}

func (s *Server) handleUpdateStock(w http.ResponseWriter, r *http.Request) {
	var changes StockChanges
	if err := s.readBody(w, r, schemaUpdateStock, &changes); err != nil {
		writeError(w, r, err)
		return
	}
	stock, err := s.service.UpdateStock(r.PathValue("sku"), changes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stock)
}

func (s *Server) handleDeleteStock(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteStock(r.PathValue("sku")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBatchUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Updates   []StockUpdate `json:"updates"`
		Operation string        `json:"operation"`
	}
	if err := s.readBody(w, r, schemaBatchUpdate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	op, err := ParseOperation(req.Operation, OperationAdd)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.service.BatchUpdate(req.Updates, op)
	if err != nil {
		writeError(w, r, err)
		return
	}
	code := http.StatusOK
	if result.Partial() {
		code = http.StatusMultiStatus
	}
	writeJSON(w, code, result)
}

func (s *Server) handleExportStocks(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.service.ExportStocks(&buf); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="stocks.xlsx"`)
	w.Write(buf.Bytes())
}

func (s *Server) handleValidateItems(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []billparse.Item `json:"items"`
	}
	if err := s.readBody(w, r, schemaValidateItems, &req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.service.ValidateItems(req.Items))
}

func (s *Server) handleUploadBill(w http.ResponseWriter, r *http.Request) {
	tooLarge := fmt.Sprintf("File is too large. Maximum size is %dMB.", s.maxUpload>>20)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: tooLarge})
			return
		}
		slog.Error("Error parsing multipart form", "error", err)
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Error parsing form"})
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "No file was selected. Please choose a file to upload."})
		return
	}
	defer f.Close()

	if header.Size > s.maxUpload {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: tooLarge})
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Error reading file. Please try again."})
		return
	}

	bill, err := s.service.ParseBill(r.Context(), header.Filename, data, header.Header.Get("Content-Type"))
	if err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			// acquisition failures carry a readable stage prefix
			code = http.StatusUnprocessableEntity
		}
		slog.Error("Error processing bill", "filename", header.Filename, "error", err)
		writeJSON(w, code, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, bill)
}

func (s *Server) handleParseText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := s.readBody(w, r, schemaBillText, &req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.service.ParseText(req.Text))
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.service.ListBills()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bills)
}

func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	bill, err := s.service.GetBill(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

func (s *Server) handleGetBillFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetBillFile(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteBill(r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleApplyBill(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Operation string `json:"operation"`
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: reading body: %v", ErrInvalidRequest, err))
		return
	}
	// the body is optional
	if len(bytes.TrimSpace(body)) > 0 {
		if err := s.schemas.decode(schemaApplyBill, body, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	op, err := ParseOperation(req.Operation, OperationSubtract)
	if err != nil {
		writeError(w, r, err)
		return
	}

	bill, err := s.service.ApplyBill(r.PathValue("id"), op)
	if err != nil {
		writeError(w, r, err)
		return
	}
	code := http.StatusOK
	if bill.Result.Partial() {
		code = http.StatusMultiStatus
	}
	writeJSON(w, code, map[string]any{"bill": bill, "result": bill.Result})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (s *Server) handleStaticCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css")
	w.Write(appCSS)
}

func (s *Server) handleStaticJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Write(appJS)
}
