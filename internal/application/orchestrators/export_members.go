package orchestrators

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"memberdesk/internal/adapters/backend"
	"memberdesk/internal/application/listutil"
	"memberdesk/internal/domain/audit"
	"memberdesk/internal/domain/member"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ErrUnknownFormat is returned for an unsupported export format.
var ErrUnknownFormat = errors.New("unknown export format")

const exportSheet = "Members"

// ExportMembersInput selects which members to export and how.
type ExportMembersInput struct {
	Filters listutil.Filters
	Format  string
	Actor   Actor
}

// ExportMembersDeps holds dependencies for ExecuteExportMembers.
type ExportMembersDeps struct {
	Members MemberWalker
	Audit   AuditRecorder
}

// ExportFile is a rendered export ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
	Rows        int
}

// ExecuteExportMembers walks every page of the filtered listing and renders
// the members with the import column layout.
// PRE: Format is FormatCSV or FormatXLSX
// POST: Rows equals the number of members returned by the backend
func ExecuteExportMembers(ctx context.Context, rc backend.RequestContext, input ExportMembersInput, deps ExportMembersDeps) (ExportFile, error) {
	if input.Format == "" {
		input.Format = FormatCSV
	}
	if input.Format != FormatCSV && input.Format != FormatXLSX {
		return ExportFile{}, fmt.Errorf("%w: %q", ErrUnknownFormat, input.Format)
	}

	var rows [][]string
	q := backend.ListQuery{Search: input.Filters.Search, Status: input.Filters.Status, Limit: 100}
	err := deps.Members.WalkMembers(ctx, rc, q, func(m member.Member) error {
		rows = append(rows, memberRow(m))
		return nil
	})
	if err != nil {
		return ExportFile{}, fmt.Errorf("export members: %w", err)
	}

	var buf bytes.Buffer
	out := ExportFile{Rows: len(rows)}
	switch input.Format {
	case FormatCSV:
		err = writeCSV(&buf, rows)
		out.Filename = "members.csv"
		out.ContentType = "text/csv; charset=utf-8"
	case FormatXLSX:
		err = writeXLSX(&buf, rows)
		out.Filename = "members.xlsx"
		out.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if err != nil {
		return ExportFile{}, fmt.Errorf("render %s export: %w", input.Format, err)
	}
	out.Body = buf.Bytes()

	slog.Info("members_export", "actor", input.Actor.Email, "format", input.Format, "rows", out.Rows)
	recordAudit(ctx, deps.Audit, input.Actor, audit.NewEvent(input.Actor.Email, audit.CategoryMember, audit.ActionExport).
		WithDescription(fmt.Sprintf("Exported %d members as %s", out.Rows, input.Format)).
		WithMetadata(map[string]string{"search": input.Filters.Search, "status": input.Filters.Status}))
	return out, nil
}

// memberRow renders m in MemberColumns order.
func memberRow(m member.Member) []string {
	return []string{
		m.UUID, m.FamilyID, m.MemberID, m.Name, m.Amount, m.ForYear,
		exportDate(m.TransactionDate), exportDate(m.DepositDate), m.Comments,
		m.Activity, m.Gender, exportBool(m.SendEmail), m.EmailAddress,
		m.PhoneNo, m.Street, m.City, m.State, m.Zip, exportDate(m.DOB),
		exportBool(m.WhatsappGroupMember),
	}
}

func exportDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(backend.DateLayout)
}

func exportBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func writeCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(MemberColumns); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func writeXLSX(w io.Writer, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return err
	}
	header := make([]any, len(MemberColumns))
	for i, c := range MemberColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return err
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		vals := make([]any, len(r))
		for j, v := range r {
			vals[j] = v
		}
		if err := f.SetSheetRow(exportSheet, cell, &vals); err != nil {
			return err
		}
	}
	if err := f.SetPanes(exportSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	return f.Write(w)
}
