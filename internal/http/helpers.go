package http

import (
	"fmt"
	"html/template"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wonchon/internal/core"
	"wonchon/internal/editor"
)

// templateFuncs are the display helpers available to every template.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"won":         core.FormatWon,
		"bizNumber":   core.FormatBizNumber,
		"phone":       core.FormatPhone,
		"maskRRN":     core.MaskResidentNumber,
		"incomeTypes": core.IncomeTypes,
		"orderLabel":  editor.OrderLabel,
		"add":         func(a, b int) int { return a + b },
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006.01.02")
		},
		"koreanDate": func(t time.Time) string {
			return fmt.Sprintf("%d년 %d월 %d일", t.Year(), int(t.Month()), t.Day())
		},
		"periodQuery": func(p core.Period) template.URL {
			return template.URL(periodQuery(p))
		},
		"monthValue": func(p core.Period) string {
			return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
		},
		"deref": func(v *int64) int64 {
			if v == nil {
				return 0
			}
			return *v
		},
	}
}

// periodQuery renders "year=Y&month=M" for links and hx-post targets.
func periodQuery(p core.Period) string {
	q := url.Values{}
	q.Set("year", fmt.Sprint(p.Year))
	q.Set("month", fmt.Sprint(p.Month))
	return q.Encode()
}

func businessURL(id int64, p core.Period) string {
	return fmt.Sprintf("/business/%d?%s", id, periodQuery(p))
}

func declarationURL(id int64, p core.Period) string {
	return fmt.Sprintf("/business/%d/declaration?%s", id, periodQuery(p))
}

// isHTMX reports whether the request was issued by htmx.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// redirect navigates the browser: HX-Redirect for htmx requests, a 303
// otherwise.
func redirect(w http.ResponseWriter, r *http.Request, url string) {
	if isHTMX(r) {
		NewHTMXResponse().TriggerModalClose().Redirect(url).Write(w)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// attachment sets the download headers. Non-ASCII names are sent with the
// RFC 2231 encoding.
func attachment(w http.ResponseWriter, filename, contentType string) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	cd := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	if cd == "" {
		cd = `attachment; filename="` + strings.Map(asciiOnly, filename) + `"`
	}
	w.Header().Set("Content-Disposition", cd)
}

func asciiOnly(r rune) rune {
	if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
		return '_'
	}
	return r
}

func receiptFilename(jobID string) string {
	return "접수증_" + jobID + ".pdf"
}
