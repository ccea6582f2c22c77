package models

import (
	"context"
	"fmt"
	"io"
	"time"

	"bitbucket.org/mmdatafocus/cashdesk_backend/utils"
	"github.com/xuri/excelize/v2"
)

var sessionExportHeadings = []string{
	"SessionId", "Business", "OperatorId", "Status",
	"OpenedAt", "ClosedAt",
	"InitialCash", "FinalCash", "Envelope",
	"CreditCard", "DebitCard", "BankTransfer",
	"CashSales", "TotalSales", "Difference",
	"Flagged", "FlagReason",
}

func sessionExportRow(session *CashSession, businessName string) []interface{} {

	closedAt := ""
	if session.ClosedAt != nil {
		closedAt = session.ClosedAt.UTC().Format(time.RFC3339)
	}

	cashSales, totalSales, difference := "", "", ""
	if session.Status == SessionStatusClosed {
		result := Reconcile(ReconciliationFor(session))
		cashSales = result.CashSales.String()
		totalSales = result.TotalSales.String()
		difference = result.Difference.String()
	}

	return []interface{}{
		session.ID, businessName, session.OperatorId, string(session.Status),
		session.OpenedAt.UTC().Format(time.RFC3339), closedAt,
		session.InitialCash.String(), session.FinalCash.String(), session.EnvelopeAmount.String(),
		session.CreditCardTotal.String(), session.DebitCardTotal.String(), session.BankTransferTotal.String(),
		cashSales, totalSales, difference,
		utils.DereferencePtr(session.IsFlagged), session.FlagReason,
	}
}

// ExportSessionsExcel streams the caller's visible sessions for a period as
// an xlsx workbook. Rows carry the recomputed money figures, same as the
// JSON report, so the two outputs can never disagree.
func ExportSessionsExcel(ctx context.Context, w io.Writer, businessId *string, fromDate time.Time, toDate time.Time) error {

	if toDate.Before(fromDate) {
		return utils.Invalid("to_date must not precede from_date")
	}

	sessions, err := ListSessions(ctx, &SessionFilter{
		BusinessId: businessId,
		FromDate:   &fromDate,
		ToDate:     &toDate,
	})
	if err != nil {
		return err
	}

	// Business names are cached, but keep one lookup per distinct business.
	businessNames := map[string]string{}
	for _, session := range sessions {
		if _, ok := businessNames[session.BusinessId]; ok {
			continue
		}
		business, err := GetBusinessById(ctx, session.BusinessId)
		if err != nil {
			return err
		}
		businessNames[session.BusinessId] = business.Name
	}

	f := excelize.NewFile()
	sheetName := "Sessions"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return utils.Integrity("ExportSessionsExcel", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	col := 'A'
	for _, h := range sessionExportHeadings {
		f.SetCellValue(sheetName, string(col)+"1", h)
		col++
	}

	rowNo := 2
	for _, session := range sessions {
		col := 'A'
		for _, value := range sessionExportRow(session, businessNames[session.BusinessId]) {
			f.SetCellValue(sheetName, string(col)+fmt.Sprint(rowNo), value)
			col++
		}
		rowNo++
	}

	if err := f.Write(w); err != nil {
		return utils.Integrity("ExportSessionsExcel", err)
	}
	return nil
}
