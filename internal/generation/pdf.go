package generation

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
	"github.com/go-pdf/fpdf"
)

const (
	chartBarsPerRow = 4
	chartCellW      = 45.0
	chartCellH      = 12.0
)

// sheetDate pins the document metadata so identical arrangements render identical bytes.
var sheetDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// RenderLeadSheet draws a lead sheet: title, parameters, section map and a chord chart
// with one cell per bar.
func RenderLeadSheet(arr *models.Arrangement, params models.MusicParameters) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title(params), true)
	pdf.SetCreator("ai-music-assistant", false)
	pdf.SetCreationDate(sheetDate)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(strings.ToUpper(title(params))), "", 1, "C", false, 0, "")
	if params.Description != "" {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 5, tr(params.Description), "", "C", false)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 10)
	instruments := make([]string, len(params.Instruments))
	for i, inst := range params.Instruments {
		instruments[i] = string(inst)
	}
	rows := [][2]string{
		{"Key", string(params.Key)},
		{"Tempo", fmt.Sprintf("%d BPM", params.Tempo)},
		{"Time signature", string(params.TimeSignature)},
		{"Genre / mood", string(params.Genre) + " / " + string(params.Mood)},
		{"Instruments", strings.Join(instruments, ", ")},
		{"Length", fmt.Sprintf("%d s, %d bars", params.Duration, len(arr.Chords))},
	}
	for _, r := range rows {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 6, r[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, tr(r[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	if len(arr.Sections) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, "Form", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for _, s := range arr.Sections {
			pdf.CellFormat(0, 5, fmt.Sprintf("%s: bars %d-%d", s.Name, s.StartBar+1, s.StartBar+s.LengthBar), "", 1, "L", false, 0, "")
		}
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Chord chart", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	for i, c := range arr.Chords {
		ln := 0
		if (i+1)%chartBarsPerRow == 0 || i == len(arr.Chords)-1 {
			ln = 1
		}
		pdf.CellFormat(chartCellW, chartCellH, c.ChordSymbol, "1", ln, "C", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
