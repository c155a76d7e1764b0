// Package report issues service reports for bookings: a stored PDF plus a
// sealed verification code printed as a QR image.
package report

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"mekaniku/internal/apperr"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/utils"
)

type DBLayer interface {
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	IsWorkshopStaff(ctx context.Context, userID, workshopID string) (bool, error)
	CreateReport(ctx context.Context, r *models.Report) error
	GetReport(ctx context.Context, id string) (*models.Report, error)
}

type Storage interface {
	Save(name string, data []byte) (string, error)
	Remove(name string)
}

type ReportService struct {
	DB         DBLayer
	Codec      *Codec
	Storage    Storage
	VerifyHost string
	Currency   string
	Logger     *logger.Logger
}

func NewReportService(store DBLayer, codec *Codec, storage Storage, log *logger.Logger) *ReportService {
	return &ReportService{DB: store, Codec: codec, Storage: storage, Logger: log}
}

// Verification is the answer to a verification request.
type Verification struct {
	Valid  bool           `json:"valid"`
	Report *models.Report `json:"report,omitempty"`
}

// Generate issues the booking's report. The total is the payment amount when
// one exists, else the service base price.
func (s *ReportService) Generate(ctx context.Context, actor models.Actor, bookingID string, req models.GenerateReportRequest) (*models.Report, error) {
	booking, err := s.DB.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin {
		staff, err := s.DB.IsWorkshopStaff(ctx, actor.ID, booking.WorkshopID)
		if err != nil {
			return nil, fmt.Errorf("check workshop staff: %w", err)
		}
		if !staff {
			return nil, apperr.Forbidden("You do not work at this booking's workshop")
		}
	}
	if booking.Report != nil {
		return nil, apperr.Conflict("Report already exists for this booking")
	}

	report := &models.Report{
		ID:        utils.GenerateID(),
		BookingID: booking.ID,
		Summary:   req.Summary,
		TotalCost: TotalCost(booking),
		CreatedAt: time.Now().UTC(),
	}
	code, err := s.Codec.Seal(Claim{
		ReportID:  report.ID,
		BookingID: booking.ID,
		TotalCost: report.TotalCost,
		IssuedAt:  report.CreatedAt,
	})
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("seal verification code: %w", err))
	}
	report.VerificationCode = code

	qr, err := QR(s.qrContent(code))
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("render qr: %w", err))
	}
	pdf, err := RenderPDF(Document{Report: report, Booking: booking, QRCode: qr, Currency: s.Currency})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	fileName := report.ID + ".pdf"
	report.PDFURL, err = s.Storage.Save(fileName, pdf)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if err := s.DB.CreateReport(ctx, report); err != nil {
		s.Storage.Remove(fileName)
		return nil, err
	}
	s.Logger.LogBooking("REPORT", booking.ID, fmt.Sprintf("report %s issued by %s", report.ID, actor.ID))
	return report, nil
}

func (s *ReportService) GetReport(ctx context.Context, id string) (*models.Report, error) {
	return s.DB.GetReport(ctx, id)
}

// Verify checks that code was sealed by this service and still matches a
// stored report.
func (s *ReportService) Verify(ctx context.Context, code string) (*Verification, error) {
	claim, err := s.Codec.Open(strings.TrimSpace(code))
	if errors.Is(err, ErrInvalidCode) {
		return &Verification{Valid: false}, nil
	}
	if err != nil {
		return nil, err
	}

	report, err := s.DB.GetReport(ctx, claim.ReportID)
	if apperr.IsNotFound(err) {
		return &Verification{Valid: false}, nil
	}
	if err != nil {
		return nil, err
	}
	if report.VerificationCode != strings.TrimSpace(code) || report.BookingID != claim.BookingID {
		return &Verification{Valid: false}, nil
	}
	return &Verification{Valid: true, Report: report}, nil
}

func (s *ReportService) qrContent(code string) string {
	if s.VerifyHost == "" {
		return code
	}
	return strings.TrimRight(s.VerifyHost, "/") + "/reports/verify?code=" + url.QueryEscape(code)
}

func TotalCost(b *models.Booking) float64 {
	if b.Payment != nil {
		return b.Payment.Amount
	}
	if b.Service != nil {
		return b.Service.BasePrice
	}
	return 0
}
