package server

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"procure/internal"
	"procure/internal/render"
	"procure/internal/report"
	"procure/internal/status"
	"procure/internal/tracker"
	"procure/internal/util"
)

const (
	formatXLSX = "xlsx"
	formatPDF  = "pdf"
)

type importJSON struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	Sheet      string `json:"sheet"`
	Rows       int    `json:"rows"`
	EmailID    *int   `json:"emailId,omitempty"`
	ImportedAt string `json:"importedAt"`
	Reused     bool   `json:"reused,omitempty"`
}

func toImportJSON(rec internal.ImportRecord) importJSON {
	return importJSON{ID: rec.ID, Source: rec.Source, Sheet: rec.Sheet, Rows: rec.Rows, EmailID: rec.EmailID, ImportedAt: rec.ImportedAt}
}

type sectionJSON struct {
	Name      string     `json:"name"`
	Notes     []string   `json:"notes,omitempty"`
	Columns   []string   `json:"columns"`
	Rows      [][]string `json:"rows"`
	Highlight []int      `json:"highlight,omitempty"`
}

type documentJSON struct {
	Title    string        `json:"title"`
	Summary  []string      `json:"summary,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
	Sections []sectionJSON `json:"sections"`
}

// toDocumentJSON renders every cell the way the text and PDF outputs do.
func toDocumentJSON(doc report.Document) documentJSON {
	out := documentJSON{Title: doc.Title, Summary: doc.Summary, Warnings: doc.Warnings, Sections: []sectionJSON{}}
	for _, s := range doc.Sections {
		js := sectionJSON{Name: s.Name, Notes: s.Notes, Columns: s.Columns, Rows: make([][]string, 0, len(s.Rows)), Highlight: s.Highlight}
		for _, row := range s.Rows {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = report.Text(v)
			}
			js.Rows = append(js.Rows, cells)
		}
		out.Sections = append(out.Sections, js)
	}
	return out
}

func (s *Server) createImport(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "multipart field \"file\" is required")
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	res, err := s.importer.ImportBytes(fh.Filename, content, c.FormValue("sheet"), nil)
	if err != nil {
		return err
	}
	body := toImportJSON(res.Import)
	body.Reused = res.Reused
	code := fiber.StatusCreated
	if res.Reused {
		code = fiber.StatusOK
	}
	return c.Status(code).JSON(body)
}

func (s *Server) listImports(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 500 {
		limit = 20
	}
	recs, err := s.db.ListImports(limit)
	if err != nil {
		return err
	}
	out := make([]importJSON, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toImportJSON(rec))
	}
	return c.JSON(fiber.Map{"imports": out})
}

// summary serves the dashboard view, or one status bucket with ?status=.
func (s *Server) summary(c *fiber.Ctx) error {
	table, rec, err := s.importer.Load(c.Query("import"))
	if err != nil {
		return err
	}
	doc := tracker.SummaryDocument(table)
	if label := strings.TrimSpace(c.Query("status")); label != "" {
		known := false
		for _, l := range status.Labels(status.OrderLevel) {
			if string(l) == label {
				known = true
				break
			}
		}
		if !known {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unknown status %q", label))
		}
		doc = tracker.StatusDocument(table, status.Label(label))
	}
	return c.JSON(fiber.Map{"import": toImportJSON(rec), "report": toDocumentJSON(doc)})
}

type queryRequest struct {
	Question string  `json:"question"`
	Import   string  `json:"import"`
	Rate     float64 `json:"rate"`
}

func (s *Server) ask(c *fiber.Ctx) error {
	var req queryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	if strings.TrimSpace(req.Question) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "question is required")
	}

	table, rec, err := s.importer.Load(req.Import)
	if err != nil {
		return err
	}
	rate := req.Rate
	if rate == 0 {
		rate = s.rate()
	}
	res, doc, err := s.dispatch.WithRate(rate).Ask(table, req.Question)
	if err != nil {
		return err
	}
	if err := s.db.LogQuery(rec.ID, req.Question, res.Intent.String()); err != nil {
		s.log.Warn("log query: %v", err)
	}
	return c.JSON(fiber.Map{
		"import": rec.ID,
		"intent": res.Intent.String(),
		"report": toDocumentJSON(doc),
	})
}

func (s *Server) monthlyReport(format string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		table, _, err := s.importer.Load(c.Query("import"))
		if err != nil {
			return err
		}
		rate := c.QueryFloat("rate", s.rate())
		if err := tracker.ValidateRate(rate, s.cfg.USDINRRateMin, s.cfg.USDINRRateMax); err != nil {
			return err
		}
		m, err := tracker.BuildMonthly(table, c.Query("month"), rate)
		if err != nil {
			return err
		}
		name := "Monthly_Report_" + strings.ReplaceAll(m.Label, " ", "_")
		return sendDocument(c, tracker.MonthlyDocument(m), format, name, render.PDFOptions{Landscape: true})
	}
}

// activityReport defaults to the latest date that has any activity.
func (s *Server) activityReport(format string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		table, _, err := s.importer.Load(c.Query("import"))
		if err != nil {
			return err
		}
		day, err := activityDay(table, c.Query("date"))
		if err != nil {
			return err
		}
		a := tracker.BuildActivity(table, day)
		name := "Daily_Activity_" + day.Format("2006-01-02")
		return sendDocument(c, tracker.ActivityDocument(table, a), format, name, render.PDFOptions{Landscape: true, Serial: true})
	}
}

func activityDay(table internal.Table, value string) (time.Time, error) {
	loc := table.AsOf.Location()
	if strings.TrimSpace(value) == "" {
		_, to, ok := tracker.ActivityRange(table)
		if !ok {
			return time.Time{}, fiber.NewError(fiber.StatusNotFound, "no dated activity in snapshot")
		}
		return to, nil
	}
	t, ok := util.ParseDate(value)
	if !ok {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid date %q", value))
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
}

func sendDocument(c *fiber.Ctx, doc report.Document, format, name string, opts render.PDFOptions) error {
	var buf bytes.Buffer
	switch format {
	case formatXLSX:
		if err := render.WriteXLSX(doc, &buf); err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	case formatPDF:
		if err := render.WritePDF(doc, &buf, opts); err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "application/pdf")
	default:
		return fiber.ErrNotFound
	}
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name+"."+format))
	return c.Send(buf.Bytes())
}
