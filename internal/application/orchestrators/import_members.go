package orchestrators

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"memberdesk/internal/adapters/backend"
	"memberdesk/internal/domain/audit"
	"memberdesk/internal/domain/member"
)

// MemberColumns is the member spreadsheet header, shared by import and export.
var MemberColumns = []string{
	"UUID", "Family Id", "Member Id", "Name", "Amount", "For the Year",
	"Transaction Date", "Deposit Date", "Comments", "Activity", "Gender",
	"SendEmail", "EmailAddress", "Phone No", "Street", "City", "State", "Zip",
	"DOB", "Whatsapp group member",
}

// MaxImportRows bounds one import file.
const MaxImportRows = 5000

// ErrNoNameColumn is returned when the CSV header lacks the Name column.
var ErrNoNameColumn = errors.New("CSV missing required column: Name")

// ImportMembersInput carries the CSV stream.
// PRE: Reader is a CSV stream with a header row
type ImportMembersInput struct {
	Reader io.Reader
	Actor  Actor
}

// ImportMembersResult holds aggregate counts and per-row errors.
// Truncated is set when the file held more than MaxImportRows data rows;
// the rows past the limit are not read.
type ImportMembersResult struct {
	Added     int
	Failed    int
	Truncated bool
	Errors    []ImportRowError
}

// Summary returns the notification text.
func (r ImportMembersResult) Summary() string {
	return fmt.Sprintf("Import complete: %d added, %d failed.", r.Added, r.Failed)
}

// TruncationNotice explains a truncated import, or is empty.
func (r ImportMembersResult) TruncationNotice() string {
	if !r.Truncated {
		return ""
	}
	return fmt.Sprintf("Only the first %d rows were imported; split the file to import the rest.", MaxImportRows)
}

// ImportRowError describes why one CSV row was not imported.
type ImportRowError struct {
	Row     int // 1-based line in the file where the record starts
	Name    string
	Message string
}

// ImportMembersDeps holds dependencies for the import orchestrator.
type ImportMembersDeps struct {
	Members MemberWriter
	Audit   AuditRecorder
	Now     func() time.Time
}

// ExecuteImportMembers creates one primary member per CSV row, in file order.
// Rows without a name are counted as failed and never sent.
// PRE: the header contains Name; other known columns are optional
// POST: Added + Failed equals the number of non-blank data rows read, at most MaxImportRows
// INVARIANT: rows are submitted sequentially; a failed row never stops the import
func ExecuteImportMembers(ctx context.Context, rc backend.RequestContext, input ImportMembersInput, deps ImportMembersDeps) (ImportMembersResult, error) {
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	cr := csv.NewReader(input.Reader)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return ImportMembersResult{}, fmt.Errorf("read CSV header: %w", err)
	}
	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[strings.ToLower(strings.Trim(strings.TrimSpace(h), "\ufeff"))] = i
	}
	if _, ok := colIdx["name"]; !ok {
		return ImportMembersResult{}, ErrNoNameColumn
	}
	getCol := func(row []string, col string) string {
		i, ok := colIdx[strings.ToLower(col)]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var result ImportMembersResult
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return result, fmt.Errorf("read CSV: %w", err)
			}
			result.Failed++
			result.Errors = append(result.Errors, ImportRowError{Row: perr.StartLine, Message: "unreadable row: " + perr.Err.Error()})
			continue
		}
		if blankRow(row) {
			continue
		}
		rowNum, _ := cr.FieldPos(0)
		if result.Added+result.Failed >= MaxImportRows {
			slog.Warn("members_import_truncated", "actor", input.Actor.Email, "limit", MaxImportRows, "row", rowNum)
			result.Truncated = true
			break
		}

		m := memberFromRow(func(col string) string { return getCol(row, col) }, now())
		if m.Name == "" {
			result.Failed++
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: "name is required"})
			continue
		}
		if _, err := deps.Members.CreateMember(ctx, rc, m); err != nil {
			slog.Warn("members_import_row_failed", "row", rowNum, "name", m.Name, "error", err)
			result.Failed++
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Name: m.Name, Message: backend.Message(err)})
			continue
		}
		result.Added++
	}

	slog.Info("members_import", "actor", input.Actor.Email, "added", result.Added, "failed", result.Failed, "truncated", result.Truncated)
	recordAudit(ctx, deps.Audit, input.Actor, audit.NewEvent(input.Actor.Email, audit.CategoryMember, audit.ActionImport).
		WithDescription(result.Summary()).
		WithMetadata(map[string]any{"added": result.Added, "failed": result.Failed, "truncated": result.Truncated}))
	return result, nil
}

// memberFromRow maps the spreadsheet columns onto a new primary member.
func memberFromRow(col func(string) string, now time.Time) member.Member {
	m := member.Member{
		UUID:                col("UUID"),
		FamilyID:            col("Family Id"),
		MemberID:            col("Member Id"),
		Name:                col("Name"),
		Amount:              col("Amount"),
		ForYear:             col("For the Year"),
		TransactionDate:     backend.ParseDate(col("Transaction Date")),
		DepositDate:         backend.ParseDate(col("Deposit Date")),
		Comments:            col("Comments"),
		Activity:            col("Activity"),
		Gender:              col("Gender"),
		SendEmail:           backend.ParseBool(col("SendEmail")),
		EmailAddress:        col("EmailAddress"),
		PhoneNo:             col("Phone No"),
		Street:              col("Street"),
		City:                col("City"),
		State:               col("State"),
		Zip:                 col("Zip"),
		DOB:                 backend.ParseDate(col("DOB")),
		WhatsappGroupMember: backend.ParseBool(col("Whatsapp group member")),
		Status:              member.StatusActive,
		IsPrimary:           true,
	}
	if m.ForYear == "" {
		m.ForYear = strconv.Itoa(now.Year())
	}
	if m.Gender == "" {
		m.Gender = member.Genders[0]
	}
	m.Normalize()
	return m
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
