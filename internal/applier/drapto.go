package applier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	draptolib "github.com/five82/drapto"

	"mediacache/internal/fileutil"
	"mediacache/internal/logging"
	"mediacache/internal/services"
	"mediacache/internal/template"
)

// DraptoFormat is the only container drapto writes.
const DraptoFormat = "mkv"

// EncodeFunc encodes input into outputDir, reporting progress to rep.
type EncodeFunc func(ctx context.Context, input, outputDir string, rep draptolib.Reporter) error

// Drapto encodes video to AV1 Matroska with the drapto library.
type Drapto struct {
	logger *slog.Logger
	encode EncodeFunc
}

// NewDrapto constructs the drapto applier.
func NewDrapto(logger *slog.Logger) *Drapto {
	return &Drapto{
		logger: logging.NewComponentLogger(logger, "drapto"),
		encode: libraryEncode,
	}
}

func libraryEncode(ctx context.Context, input, outputDir string, rep draptolib.Reporter) error {
	encoder, err := draptolib.New(draptolib.WithResponsive())
	if err != nil {
		return err
	}
	_, err = encoder.EncodeWithReporter(ctx, input, outputDir, rep)
	return err
}

// WithEncoder swaps the library encode for fn. Tests use it to skip SVT-AV1.
func (d *Drapto) WithEncoder(fn EncodeFunc) *Drapto {
	if fn != nil {
		d.encode = fn
	}
	return d
}

// Name identifies the applier in logs.
func (d *Drapto) Name() string { return "drapto" }

// Accepts handles templates with encoder = "drapto" whose target container is
// Matroska.
func (d *Drapto) Accepts(tpl *template.Template, input string) bool {
	return usesDrapto(tpl) && VideoFormat(tpl) == DraptoFormat && readable(input)
}

func usesDrapto(tpl *template.Template) bool {
	return strings.EqualFold(strings.TrimSpace(tpl.StringParameter("encoder", "")), "drapto")
}

// Apply encodes into a private directory next to output and moves the
// result into place. drapto always names its output <input stem>.mkv.
func (d *Drapto) Apply(ctx context.Context, tpl *template.Template, input, output string) error {
	if strings.TrimSpace(input) == "" {
		return errors.New("drapto: input path required")
	}
	workDir := output + ".drapto"
	if err := os.RemoveAll(workDir); err != nil {
		return fmt.Errorf("drapto: clear work dir: %w", err)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("drapto: create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	rep := newLogReporter(logging.WithContext(ctx, d.logger).With(logging.String(logging.FieldTemplateKey, tpl.Key)))
	if err := d.encode(ctx, input, workDir, rep); err != nil {
		return services.Wrap(services.ErrExternalTool, "drapto", "encode", tpl.Key, err)
	}

	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	encoded := filepath.Join(workDir, stem+"."+DraptoFormat)
	if renameErr := os.Rename(encoded, output); renameErr != nil {
		if err := fileutil.CopyFile(encoded, output); err != nil {
			return fmt.Errorf("drapto: move output: %w", errors.Join(renameErr, err))
		}
		d.logger.Debug("drapto output copied after rename failed",
			logging.String("output", output),
			logging.Error(renameErr),
		)
	}
	return nil
}

var _ Applier = (*Drapto)(nil)
