package project

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/edgeflow/modgate/internal/gatewayerr"
)

// csvHeader is the exact column set used for tag import/export.
var csvHeader = []string{
	"Tag Name", "Address", "Data Type", "Respect Data Type", "Client Access",
	"Scan Rate", "Scaling", "Raw Low", "Raw High", "Scaled Low", "Scaled High",
	"Scaled Data Type", "Clamp Low", "Clamp High", "Eng Units", "Description",
	"Negate Value",
}

// ExportTagsCSV writes tags (one row per tag, named by the tag's own Name)
// in the standard column order.
func ExportTagsCSV(w io.Writer, tags []Tag) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range tags {
		row := []string{
			t.Name,
			t.Address,
			t.DataType,
			"Yes",
			t.Access,
			strconv.Itoa(t.ScanRateMS),
			"",
			"", "", "", "",
			"",
			"", "",
			"",
			t.Description,
			"No",
		}
		if t.Scaling != nil {
			row[6] = string(t.Scaling.Kind)
			row[7] = strconv.FormatFloat(t.Scaling.RawLow, 'g', -1, 64)
			row[8] = strconv.FormatFloat(t.Scaling.RawHigh, 'g', -1, 64)
			row[9] = strconv.FormatFloat(t.Scaling.ScaledLow, 'g', -1, 64)
			row[10] = strconv.FormatFloat(t.Scaling.ScaledHigh, 'g', -1, 64)
			row[11] = t.Scaling.ScaledType
			row[12] = yesNo(t.Scaling.ClampLow)
			row[13] = yesNo(t.Scaling.ClampHigh)
			row[14] = t.Scaling.Units
			row[16] = yesNo(t.Scaling.Negate)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ImportTagsCSV parses a CSV in the standard column layout back into tags.
func ImportTagsCSV(r io.Reader) ([]Tag, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.ErrConfiguration, "parse tag CSV: %v", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	rows := records[1:] // skip header

	tags := make([]Tag, 0, len(rows))
	for _, row := range rows {
		if len(row) < len(csvHeader) {
			return nil, gatewayerr.Wrap(gatewayerr.ErrConfiguration, "tag CSV row has %d columns, want %d", len(row), len(csvHeader))
		}
		scanRate, _ := strconv.Atoi(row[5])
		t := Tag{
			Name:        row[0],
			Address:     row[1],
			DataType:    row[2],
			Access:      row[4],
			ScanRateMS:  scanRate,
			Description: row[15],
		}
		if kind := ScalingKind(row[6]); kind == ScalingLinear || kind == ScalingSquareRoot {
			rawLow, _ := strconv.ParseFloat(row[7], 64)
			rawHigh, _ := strconv.ParseFloat(row[8], 64)
			scaledLow, _ := strconv.ParseFloat(row[9], 64)
			scaledHigh, _ := strconv.ParseFloat(row[10], 64)
			t.Scaling = &ScalingDescriptor{
				Kind:       kind,
				RawLow:     rawLow,
				RawHigh:    rawHigh,
				ScaledLow:  scaledLow,
				ScaledHigh: scaledHigh,
				ScaledType: row[11],
				ClampLow:   isYes(row[12]),
				ClampHigh:  isYes(row[13]),
				Units:      row[14],
				Negate:     isYes(row[16]),
			}
		}
		tags = append(tags, t)
	}
	return tags, nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func isYes(s string) bool {
	return s == "Yes" || s == "yes" || s == "Y" || s == "true"
}
