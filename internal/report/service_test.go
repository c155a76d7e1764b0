package report_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mekaniku/internal/apperr"
	"mekaniku/internal/database/dbtest"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/report"
	report_db "mekaniku/internal/report/db"
)

func setup(t *testing.T) (*report.ReportService, *dbtest.Fixtures, dbtest.Scenario, string) {
	t.Helper()
	db := dbtest.New(t)
	f := dbtest.NewFixtures(t, db)
	codec, err := report.NewCodec("test-secret")
	require.NoError(t, err)
	dir := t.TempDir()
	store, err := report.NewFileStore(dir, "/files/reports/")
	require.NoError(t, err)
	svc := report.NewReportService(&report_db.DB{Bun: db}, codec, store, logger.Discard())
	return svc, f, f.Scenario(), dir
}

func TestCodecRoundTripAndTamper(t *testing.T) {
	codec, err := report.NewCodec("k1")
	require.NoError(t, err)
	code, err := codec.Seal(report.Claim{ReportID: "r1", BookingID: "b1", TotalCost: 10})
	require.NoError(t, err)

	claim, err := codec.Open(code)
	require.NoError(t, err)
	assert.Equal(t, "r1", claim.ReportID)

	other, err := report.NewCodec("k2")
	require.NoError(t, err)
	_, err = other.Open(code)
	assert.ErrorIs(t, err, report.ErrInvalidCode)

	_, err = codec.Open("not-a-code!")
	assert.ErrorIs(t, err, report.ErrInvalidCode)
}

func TestGenerateUsesPaymentAmount(t *testing.T) {
	svc, f, s, dir := setup(t)
	b := s.Booking(f, models.BookingCompleted)
	f.Payment(b.ID, 175000, models.PaymentPaid)

	rp, err := svc.Generate(context.Background(), models.Actor{ID: s.Owner.ID, Role: models.RoleWorkshop}, b.ID,
		models.GenerateReportRequest{Summary: "Oil and filter replaced"})
	require.NoError(t, err)
	assert.Equal(t, 175000.0, rp.TotalCost)
	assert.Equal(t, "/files/reports/"+rp.ID+".pdf", rp.PDFURL)
	assert.NotEmpty(t, rp.VerificationCode)

	data, err := os.ReadFile(filepath.Join(dir, rp.ID+".pdf"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	_, err = svc.Generate(context.Background(), models.Actor{ID: "admin", Role: models.RoleAdmin}, b.ID,
		models.GenerateReportRequest{Summary: "Second attempt at a report"})
	assert.True(t, apperr.IsConflict(err))
}

func TestGenerateFallsBackToServicePrice(t *testing.T) {
	svc, f, s, _ := setup(t)
	b := s.Booking(f, models.BookingInProgress)

	rp, err := svc.Generate(context.Background(), models.Actor{ID: "admin", Role: models.RoleAdmin}, b.ID,
		models.GenerateReportRequest{Summary: "Inspection only, no payment"})
	require.NoError(t, err)
	assert.Equal(t, 150000.0, rp.TotalCost)

	got, err := svc.GetReport(context.Background(), rp.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Booking)
	require.NotNil(t, got.Booking.Service)
	assert.Equal(t, "Oil Change", got.Booking.Service.Name)
}

func TestGenerateRequiresStaff(t *testing.T) {
	svc, f, s, _ := setup(t)
	b := s.Booking(f, models.BookingCompleted)
	outsider := f.User(models.RoleWorkshop)

	_, err := svc.Generate(context.Background(), models.Actor{ID: outsider.ID, Role: models.RoleWorkshop}, b.ID,
		models.GenerateReportRequest{Summary: "Should not be allowed"})
	assert.True(t, apperr.IsForbidden(err))

	_, err = svc.Generate(context.Background(), models.Actor{ID: "admin", Role: models.RoleAdmin}, "missing",
		models.GenerateReportRequest{Summary: "Missing booking report"})
	assert.True(t, apperr.IsNotFound(err))
}

func TestVerify(t *testing.T) {
	svc, f, s, _ := setup(t)
	ctx := context.Background()
	b := s.Booking(f, models.BookingCompleted)
	rp, err := svc.Generate(ctx, models.Actor{ID: "admin", Role: models.RoleAdmin}, b.ID,
		models.GenerateReportRequest{Summary: "Brake pads replaced"})
	require.NoError(t, err)

	res, err := svc.Verify(ctx, rp.VerificationCode)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, rp.ID, res.Report.ID)

	res, err = svc.Verify(ctx, "garbage")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Nil(t, res.Report)
}
