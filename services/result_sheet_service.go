package services

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

//go:embed templates/result_sheet.html
var templateFS embed.FS

var ErrUploadDisabled = errors.New("result sheet upload is not configured")

var resultSheetTmpl = template.Must(template.New("result_sheet.html").Funcs(template.FuncMap{
	"inc":    func(i int) int { return i + 1 },
	"isTrue": func(b *bool) bool { return b != nil && *b },
}).ParseFS(templateFS, "templates/result_sheet.html"))

// ResultSheets renders reviews as printable PDFs and optionally publishes
// them to Cloudinary.
type ResultSheets struct {
	cloudinaryURL string
}

func NewResultSheets(cloudinaryURL string) *ResultSheets {
	return &ResultSheets{cloudinaryURL: cloudinaryURL}
}

func (r *ResultSheets) UploadEnabled() bool { return r.cloudinaryURL != "" }

func (r *ResultSheets) RenderHTML(rev Review, studentName string) (string, error) {
	submitted := "-"
	if rev.SubmittedAt != nil {
		submitted = rev.SubmittedAt.Format("January 2, 2006 15:04")
	}
	data := struct {
		Review      Review
		StudentName string
		SubmittedAt string
	}{rev, studentName, submitted}

	var out bytes.Buffer
	if err := resultSheetTmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("render result sheet: %w", err)
	}
	return out.String(), nil
}

// PDF prints htmlContent with headless Chrome.
func (r *ResultSheets) PDF(ctx context.Context, htmlContent string) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	var pdfBuffer []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			pdf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdfBuffer = pdf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("print result sheet: %w", err)
	}
	return pdfBuffer, nil
}

// Upload stores the PDF as a raw Cloudinary asset and returns its URL.
func (r *ResultSheets) Upload(ctx context.Context, pdf []byte, submissionID int64) (string, error) {
	if !r.UploadEnabled() {
		return "", ErrUploadDisabled
	}
	cld, err := cloudinary.NewFromURL(r.cloudinaryURL)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := cld.Upload.Upload(ctx, bytes.NewReader(pdf), uploader.UploadParams{
		PublicID:     fmt.Sprintf("%d_%s", submissionID, uuid.New().String()),
		Folder:       "academy_result_sheets",
		ResourceType: "raw",
	})
	if err != nil {
		return "", err
	}
	log.Info().Int64("submissionID", submissionID).Str("url", res.SecureURL).Msg("result sheet uploaded")
	return res.SecureURL, nil
}
