// Package resumepdf turns resume markup into a paginated, image-based PDF.
//
// Markup is laid out in a hidden fixed-width surface of a headless browser,
// captured once at full height, sliced into page-height bands and written
// as one image per physical page:
//
//	markup → Mount → Capture → Paginate → Assemble → Document
//
// # Rendering
//
// Create a [Pipeline], which owns one browser for its lifetime:
//
//	p, err := resumepdf.New()
//	if err != nil {
//	    log.Fatal(resumepdf.UserMessage(err))
//	}
//	defer p.Close()
//
//	doc, err := p.Convert(ctx, markup, "Jane Doe")
//	path, err := doc.Save(".") // ./Jane_Doe.pdf
//
// The browser is driven by chromedp, falling back to go-rod. Chrome or
// Chromium must be available in PATH, or use [WithAutoDownload]:
//
//	p, err := resumepdf.New(resumepdf.WithAutoDownload())
//
// The default [Layout] renders 794 CSS pixels wide (A4 at 96 dpi) at
// scale 2 and cuts 2246-row pages. Use [WithLayout], [WithFit] and
// [WithImageEncoding] to change the geometry and how bands are placed.
//
// # Session flow
//
// A Pipeline also keeps the current markup and pages between calls:
//
//	p.LoadTemplate(reference)          // styles stripped, becomes current markup
//	pages, err := p.Generate(ctx, data) // needs WithGenerator
//	pages, err  = p.Render(ctx, markup)
//	doc, err   := p.Export(ctx, title)  // renders first if nothing is rendered
//
// Each stage runs at most once at a time. Triggering a stage that is
// already running returns [ErrBusy]; [Pipeline.Status] reports the flags.
//
// # Errors
//
// Failures are reported as [*Error] values carrying a [Kind]. Use
// [UserMessage] to get the single message to show a user.
//
// # Lower-level pieces
//
// [SanitizeMarkup], [Paginate], [Assembler] and [SanitizeFilename] can be
// used on their own. A [Document] gives access to the assembled bytes:
//
//	doc.Bytes()                       // []byte
//	doc.Base64()                      // base64 string (RFC 4648)
//	doc.Reader()                      // *bytes.Reader
//	doc.WriteTo(w)                    // io.WriterTo
//	doc.WriteToFile("out.pdf", 0o644) // write to disk
package resumepdf
