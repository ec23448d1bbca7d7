package pdf

import (
	"context"
	"strings"
	"time"

	"invoice-studio/internal/logger"
	"invoice-studio/internal/render"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// A4 in inches, as Chrome's print API expects.
const (
	a4WidthIn  = 8.27
	a4HeightIn = 11.69
)

// ChromeConverter prints documents with a headless Chrome. Each conversion
// gets its own browser process; the semaphore bounds how many run at once.
type ChromeConverter struct {
	opts []chromedp.ExecAllocatorOption
	sem  *semaphore.Weighted
	log  zerolog.Logger
}

// NewChromeConverter uses execPath when set, otherwise chromedp's lookup of
// a local Chrome or Chromium.
func NewChromeConverter(execPath string, maxConcurrent int64) *ChromeConverter {
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("font-render-hinting", "none"),
	)
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}
	return &ChromeConverter{
		opts: opts,
		sem:  semaphore.NewWeighted(maxConcurrent),
		log:  logger.WithComponent("pdf.chrome"),
	}
}

func (c *ChromeConverter) Backend() string { return "chrome" }

func (c *ChromeConverter) Convert(ctx context.Context, doc *render.Document) ([]byte, error) {
	if doc == nil || strings.TrimSpace(doc.HTML) == "" {
		return nil, permanent(c.Backend(), ErrEmptyDocument)
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, transient(c.Backend(), err)
	}
	defer c.sem.Release(1)

	start := time.Now()
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, c.opts...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	var out []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, doc.HTML).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(a4WidthIn).
				WithPaperHeight(a4HeightIn).
				WithMarginTop(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				WithMarginRight(0).
				WithPreferCSSPageSize(true).
				Do(ctx)
			out = buf
			return err
		}),
	)
	if err != nil {
		// Browser start-up and protocol failures mean the backend is
		// unavailable rather than the document being bad.
		c.log.Warn().Err(err).Str("template", doc.Template).Msg("chrome conversion failed")
		return nil, classify(c.Backend(), err, true)
	}

	c.log.Debug().
		Str("template", doc.Template).
		Int("bytes", len(out)).
		Dur("elapsed", time.Since(start)).
		Msg("pdf printed")
	return out, nil
}
