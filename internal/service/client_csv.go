package service

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"
)

// csv header aliases, compared after lower-casing and dropping spaces, dashes and underscores
var csvColumns = map[string]string{
	"name":          "name",
	"companyname":   "name",
	"companynumber": "companyNumber",
	"number":        "companyNumber",
	"utr":           "utr",
	"payereference": "payeReference",
	"paye":          "payeReference",
	"contactname":   "contactName",
	"contactemail":  "contactEmail",
	"email":         "contactEmail",
	"contactphone":  "contactPhone",
	"phone":         "contactPhone",
	"address":       "address",
	"yearendmonth":  "yearEndMonth",
	"yearendday":    "yearEndDay",
}

func canonicalHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

// ParseClientCSV reads a header row followed by one client per line.
// Unknown columns are ignored; blank lines are skipped. Each row keeps the
// file line it came from so import errors point at the right line.
func ParseClientCSV(r io.Reader) ([]ClientRequest, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, validationError("CSV file is empty")
	}
	if err != nil {
		return nil, validationError("invalid CSV: %v", err)
	}

	fields := make([]string, len(header))
	for i, h := range header {
		fields[i] = csvColumns[canonicalHeader(strings.TrimPrefix(h, "\ufeff"))]
	}

	var rows []ClientRequest
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, validationError("invalid CSV: %v", err)
		}
		if blank(record) {
			continue
		}

		line, _ := reader.FieldPos(0)
		req := ClientRequest{Line: line}
		for i, value := range record {
			if i >= len(fields) {
				break
			}
			value = strings.TrimSpace(value)
			switch fields[i] {
			case "name":
				req.Name = value
			case "companyNumber":
				req.CompanyNumber = value
			case "utr":
				req.UTR = value
			case "payeReference":
				req.PAYEReference = value
			case "contactName":
				req.ContactName = value
			case "contactEmail":
				req.ContactEmail = value
			case "contactPhone":
				req.ContactPhone = value
			case "address":
				req.Address = value
			case "yearEndMonth":
				req.YearEndMonth = atoiPtr(value)
			case "yearEndDay":
				req.YearEndDay = atoiPtr(value)
			}
		}
		rows = append(rows, req)
	}

	if len(rows) == 0 {
		return nil, validationError("CSV file has no client rows")
	}
	return rows, nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// atoiPtr returns nil for an empty cell. A non-numeric cell becomes 0 so that
// year-end validation rejects the row instead of silently dropping the value.
func atoiPtr(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		n = 0
	}
	return &n
}
