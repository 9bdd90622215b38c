package inventory

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"regexp"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/quantify/internal/billparse"
	"github.com/zombor/quantify/internal/scanning"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		storage     *mockStorage
		scanner     *mockScanner
		cfg         ServerConfig
		ghttpServer *ghttp.Server
	)

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		scanner = &mockScanner{text: "ABC123 5\nXYZ789 3"}
		cfg = ServerConfig{Version: "1.2.3"}
	})

	// JustBeforeEach lets nested BeforeEach blocks adjust cfg and the mocks
	JustBeforeEach(func() {
		service := NewServiceWithDeps(db, scanner, storage, &mockIDGenerator{id: "bill-1"},
			&mockTimeSource{now: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)})
		server, err := NewServerWithMux(service, cfg, http.NewServeMux())
		Expect(err).NotTo(HaveOccurred())

		ghttpServer = ghttp.NewServer()
		for _, method := range []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"} {
			ghttpServer.RouteToHandler(method, regexp.MustCompile(`.*`), server.ServeHTTP)
		}
	})

	AfterEach(func() {
		ghttpServer.Close()
	})

	do := func(method, path string, body io.Reader, contentType string) *http.Response {
		req, err := http.NewRequest(method, ghttpServer.URL()+path, body)
		Expect(err).NotTo(HaveOccurred())
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(resp.Body.Close)
		return resp
	}

	doJSON := func(method, path, body string) *http.Response {
		return do(method, path, bytes.NewBufferString(body), "application/json")
	}

	decode := func(resp *http.Response, v any) {
		Expect(json.NewDecoder(resp.Body).Decode(v)).To(Succeed())
	}

	errorOf := func(resp *http.Response) string {
		var body errorBody
		decode(resp, &body)
		return body.Error
	}

	upload := func(filename, contentType string, data []byte) *http.Response {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		if contentType != "" {
			h.Set("Content-Type", contentType)
		}
		part, err := mw.CreatePart(h)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(mw.Close()).To(Succeed())
		return do("POST", "/api/bills", &buf, mw.FormDataContentType())
	}

	Describe("GET /health", func() {
		It("reports the version", func() {
			resp := do("GET", "/health", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var body map[string]string
			decode(resp, &body)
			Expect(body).To(Equal(map[string]string{"status": "ok", "version": "1.2.3"}))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			cfg.BasicAuth = BasicAuth{Username: "admin", Password: "secret"}
		})

		It("rejects requests without credentials", func() {
			resp := do("GET", "/api/stocks", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Header.Get("WWW-Authenticate")).To(Equal(`Basic realm="Quantify"`))
		})

		It("rejects wrong credentials", func() {
			req, _ := http.NewRequest("GET", ghttpServer.URL()+"/api/stocks", nil)
			req.SetBasicAuth("admin", "nope")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("accepts the configured credentials", func() {
			req, _ := http.NewRequest("GET", ghttpServer.URL()+"/api/stocks", nil)
			req.SetBasicAuth("admin", "secret")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("leaves /health open", func() {
			Expect(do("GET", "/health", nil, "").StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("CORS", func() {
		It("sets the headers on every response", func() {
			resp := do("GET", "/api/stocks/MISSING1", nil, "")
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
			Expect(resp.Header.Get("Access-Control-Allow-Methods")).To(ContainSubstring("PATCH"))
		})

		It("answers preflight requests", func() {
			resp := do("OPTIONS", "/api/stocks/batch", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
		})
	})

	Describe("the UI", func() {
		It("serves the index page", func() {
			resp := do("GET", "/", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body, _ := io.ReadAll(resp.Body)
			Expect(string(body)).To(ContainSubstring("Quantify"))
		})

		It("serves the assets", func() {
			Expect(do("GET", "/static/app.js", nil, "").Header.Get("Content-Type")).To(ContainSubstring("javascript"))
			Expect(do("GET", "/static/app.css", nil, "").Header.Get("Content-Type")).To(Equal("text/css"))
		})

		It("rejects other methods on /", func() {
			Expect(do("POST", "/", nil, "").StatusCode).To(Equal(http.StatusMethodNotAllowed))
		})
	})

	Describe("GET /api", func() {
		It("lists the endpoints", func() {
			var body struct {
				Endpoints []string `json:"endpoints"`
			}
			decode(do("GET", "/api", nil, ""), &body)
			Expect(body.Endpoints).To(ContainElement("POST /api/bills/{id}/apply"))
		})
	})

	Describe("stocks", func() {
		BeforeEach(func() {
			db.stocks["ABC123"] = &Stock{SKU: "ABC123", Quantity: 10, Color: "Red"}
			db.stocks["XYZ789"] = &Stock{SKU: "XYZ789", Quantity: 2}
		})

		It("lists with query filters", func() {
			resp := do("GET", "/api/stocks?min_quantity=5&sort_by=quantity&sort_order=desc", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var page StockPage
			decode(resp, &page)
			Expect(page.Stocks).To(HaveLen(1))
			Expect(page.Stocks[0].SKU).To(Equal("ABC123"))
			Expect(page.Summary.TotalQuantity).To(Equal(12))
		})

		It("rejects non-numeric quantity filters", func() {
			resp := do("GET", "/api/stocks?min_quantity=lots", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(errorOf(resp)).To(ContainSubstring("min_quantity"))
		})

		It("creates a stock", func() {
			resp := doJSON("POST", "/api/stocks", `{"sku":"new-1","quantity":3}`)
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			var stock Stock
			decode(resp, &stock)
			Expect(stock.SKU).To(Equal("NEW-1"))
			Expect(db.stocks).To(HaveKey("NEW-1"))
		})

		It("returns 409 for duplicates", func() {
			resp := doJSON("POST", "/api/stocks", `{"sku":"abc123"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))
		})

		It("returns 400 for bodies that fail the schema", func() {
			resp := doJSON("POST", "/api/stocks", `{"quantity":-1}`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(errorOf(resp)).To(ContainSubstring("invalid request"))
		})

		It("returns 400 for SKUs with bad characters", func() {
			resp := doJSON("POST", "/api/stocks", `{"sku":"a b"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("gets a stock", func() {
			resp := do("GET", "/api/stocks/abc123", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var stock Stock
			decode(resp, &stock)
			Expect(stock.Quantity).To(Equal(10))
		})

		It("returns a JSON 404 for unknown SKUs", func() {
			resp := do("GET", "/api/stocks/NOPE1", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))
			Expect(errorOf(resp)).To(ContainSubstring("NOPE1"))
		})

		It("updates a stock", func() {
			resp := doJSON("PUT", "/api/stocks/ABC123", `{"size":"L"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(db.stocks["ABC123"].Size).To(Equal("L"))
			Expect(db.stocks["ABC123"].Color).To(Equal("Red"))
		})

		It("deletes a stock", func() {
			resp := do("DELETE", "/api/stocks/XYZ789", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(db.stocks).NotTo(HaveKey("XYZ789"))
		})

		Describe("PATCH /api/stocks/batch", func() {
			It("adds by default", func() {
				resp := doJSON("PATCH", "/api/stocks/batch", `{"updates":[{"sku":"ABC123","quantity":1}]}`)
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(db.stocks["ABC123"].Quantity).To(Equal(11))
			})

			It("returns 207 when an entry fails", func() {
				resp := doJSON("PATCH", "/api/stocks/batch",
					`{"operation":"subtract","updates":[{"sku":"ABC123","quantity":1},{"sku":"XYZ789","quantity":5},{"sku":"GONE1","quantity":1}]}`)
				Expect(resp.StatusCode).To(Equal(http.StatusMultiStatus))
				var result BatchResult
				decode(resp, &result)
				Expect(result.Successful).To(HaveLen(1))
				Expect(result.Failed).To(HaveLen(1))
				Expect(result.NotFound).To(Equal([]string{"GONE1"}))
			})

			It("rejects unknown operations", func() {
				resp := doJSON("PATCH", "/api/stocks/batch", `{"operation":"mul","updates":[{"sku":"ABC123","quantity":1}]}`)
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		It("exports XLSX", func() {
			resp := do("GET", "/api/stocks/export", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal(scanning.TypeSpreadsheet))
			Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring("stocks.xlsx"))
			body, _ := io.ReadAll(resp.Body)
			Expect(body[:2]).To(Equal([]byte("PK")))
		})
	})

	Describe("POST /api/items/validate", func() {
		It("splits the items", func() {
			resp := doJSON("POST", "/api/items/validate", `{"items":[{"sku":"ABC123","qty":2},{"sku":"AB","qty":2}]}`)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var report ValidationReport
			decode(resp, &report)
			Expect(report.Valid).To(Equal([]billparse.Item{{SKU: "ABC123", Qty: 2}}))
			Expect(report.Rejected).To(HaveLen(1))
		})
	})

	Describe("POST /api/bills", func() {
		It("parses the upload", func() {
			resp := upload("bill.txt", "text/plain", []byte("ignored"))
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			var bill BillImport
			decode(resp, &bill)
			Expect(bill.ID).To(Equal("bill-1"))
			Expect(bill.Items).To(HaveLen(2))
			Expect(bill.Status).To(Equal(BillParsed))
		})

		When("the upload is larger than the ceiling", func() {
			BeforeEach(func() {
				cfg.MaxUploadBytes = 1 << 20
			})

			It("returns 413", func() {
				resp := upload("big.txt", "text/plain", bytes.Repeat([]byte("x"), 1<<20+64<<10))
				Expect(resp.StatusCode).To(Equal(http.StatusRequestEntityTooLarge))
				Expect(errorOf(resp)).To(ContainSubstring("1MB"))
			})
		})

		It("returns 400 without a file", func() {
			var buf bytes.Buffer
			mw := multipart.NewWriter(&buf)
			Expect(mw.WriteField("note", "x")).To(Succeed())
			Expect(mw.Close()).To(Succeed())
			resp := do("POST", "/api/bills", &buf, mw.FormDataContentType())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		When("the type is unsupported", func() {
			BeforeEach(func() {
				scanner.scanErr = scanning.ErrUnsupportedType
			})

			It("returns 415", func() {
				resp := upload("file.bin", "application/zip", []byte("PK"))
				Expect(resp.StatusCode).To(Equal(http.StatusUnsupportedMediaType))
			})
		})

		When("acquisition fails", func() {
			BeforeEach(func() {
				scanner.scanErr = io.ErrUnexpectedEOF
			})

			It("returns 422 with the error", func() {
				resp := upload("scan.png", "image/png", []byte("png"))
				Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
				Expect(errorOf(resp)).To(ContainSubstring("scanning bill"))
			})
		})
	})

	Describe("POST /api/bills/text", func() {
		It("returns the parsed import", func() {
			resp := doJSON("POST", "/api/bills/text", `{"text":"5 units of ITEM42"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var bill BillImport
			decode(resp, &bill)
			Expect(bill.Items).To(HaveLen(1))
			Expect(bill.Items[0].SKU).To(Equal("ITEM42"))
			Expect(db.bills).To(BeEmpty())
		})

		It("requires text", func() {
			Expect(doJSON("POST", "/api/bills/text", `{}`).StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("bill records", func() {
		BeforeEach(func() {
			db.stocks["ABC123"] = &Stock{SKU: "ABC123", Quantity: 10}
			db.stocks["XYZ789"] = &Stock{SKU: "XYZ789", Quantity: 1}
			db.bills["bill-1"] = &BillImport{
				ID:          "bill-1",
				File:        "bill-1_scan.pdf",
				ContentType: scanning.TypePDF,
				Status:      BillParsed,
				Items:       []billparse.Item{{SKU: "ABC123", Qty: 4}},
			}
			storage.files["bill-1_scan.pdf"] = []byte("%PDF-1.4")
		})

		It("lists bills", func() {
			var bills []*BillImport
			decode(do("GET", "/api/bills", nil, ""), &bills)
			Expect(bills).To(HaveLen(1))
		})

		It("gets a bill", func() {
			Expect(do("GET", "/api/bills/bill-1", nil, "").StatusCode).To(Equal(http.StatusOK))
			Expect(do("GET", "/api/bills/other", nil, "").StatusCode).To(Equal(http.StatusNotFound))
		})

		It("serves the stored file", func() {
			resp := do("GET", "/api/bills/bill-1/file", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal(scanning.TypePDF))
			body, _ := io.ReadAll(resp.Body)
			Expect(string(body)).To(Equal("%PDF-1.4"))
		})

		It("deletes a bill", func() {
			Expect(do("DELETE", "/api/bills/bill-1", nil, "").StatusCode).To(Equal(http.StatusNoContent))
			Expect(db.bills).To(BeEmpty())
			Expect(storage.files).To(BeEmpty())
		})

		Describe("POST /api/bills/{id}/apply", func() {
			It("subtracts when no body is sent", func() {
				resp := do("POST", "/api/bills/bill-1/apply", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				var body struct {
					Bill   BillImport  `json:"bill"`
					Result BatchResult `json:"result"`
				}
				decode(resp, &body)
				Expect(body.Bill.Status).To(Equal(BillApplied))
				Expect(body.Result.Successful).To(HaveLen(1))
				Expect(db.stocks["ABC123"].Quantity).To(Equal(6))
			})

			It("uses the requested operation", func() {
				resp := doJSON("POST", "/api/bills/bill-1/apply", `{"operation":"add"}`)
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(db.stocks["ABC123"].Quantity).To(Equal(14))
			})

			It("returns 409 the second time", func() {
				Expect(do("POST", "/api/bills/bill-1/apply", nil, "").StatusCode).To(Equal(http.StatusOK))
				Expect(do("POST", "/api/bills/bill-1/apply", nil, "").StatusCode).To(Equal(http.StatusConflict))
			})

			When("an item cannot be applied", func() {
				BeforeEach(func() {
					db.bills["bill-1"].Items = append(db.bills["bill-1"].Items, billparse.Item{SKU: "XYZ789", Qty: 3})
				})

				It("returns 207", func() {
					Expect(do("POST", "/api/bills/bill-1/apply", nil, "").StatusCode).To(Equal(http.StatusMultiStatus))
				})
			})

			When("the bill is empty", func() {
				BeforeEach(func() {
					db.bills["bill-1"].Items = nil
				})

				It("returns 400", func() {
					Expect(do("POST", "/api/bills/bill-1/apply", nil, "").StatusCode).To(Equal(http.StatusBadRequest))
				})
			})
		})
	})
})
