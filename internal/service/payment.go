package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"cargo_miniapp/internal/domain"
	"cargo_miniapp/internal/repository"
	"cargo_miniapp/pkg/logger"
)

type PaymentService interface {
	List(ctx context.Context, userID uuid.UUID, orderID *uuid.UUID, limit, offset int) ([]*domain.Payment, int, error)
	ExportXLSX(ctx context.Context, userID uuid.UUID, orderID *uuid.UUID) ([]byte, error)
}

type paymentService struct {
	paymentRepo repository.PaymentRepository
	log         logger.Logger
}

func NewPaymentService(paymentRepo repository.PaymentRepository, log logger.Logger) PaymentService {
	return &paymentService{paymentRepo: paymentRepo, log: log}
}

func (s *paymentService) List(ctx context.Context, userID uuid.UUID, orderID *uuid.UUID, limit, offset int) ([]*domain.Payment, int, error) {
	limit, offset = clampPage(limit, offset)
	return s.paymentRepo.List(ctx, userID, orderID, limit, offset)
}

// ExportXLSX собирает все платежи пользователя в XLSX-файл.
func (s *paymentService) ExportXLSX(ctx context.Context, userID uuid.UUID, orderID *uuid.UUID) ([]byte, error) {
	const exportBatch = 500

	var payments []*domain.Payment
	for offset := 0; ; offset += exportBatch {
		batch, total, err := s.paymentRepo.List(ctx, userID, orderID, exportBatch, offset)
		if err != nil {
			return nil, err
		}
		payments = append(payments, batch...)
		if offset+exportBatch >= total || len(batch) == 0 {
			break
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Payments"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Order #", "Order name", "Seller", "Amount", "Document", "Date"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	var totalAmount float64
	for i, p := range payments {
		row := i + 2
		document := ""
		if p.Document != nil {
			document = *p.Document
		}
		values := []interface{}{
			p.OrderNumber,
			p.Order.Name,
			p.Seller.FullName,
			p.Amount,
			document,
			p.CreatedAt.Format("2006-01-02 15:04"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
		totalAmount += p.Amount
	}

	totalRow := len(payments) + 2
	totalLabel, _ := excelize.CoordinatesToCellName(3, totalRow)
	totalCell, _ := excelize.CoordinatesToCellName(4, totalRow)
	if err := f.SetCellValue(sheet, totalLabel, "Total"); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(sheet, totalCell, totalAmount); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write xlsx: %w", err)
	}

	s.log.Info("Payments exported", "user_id", userID, "rows", len(payments))

	return buf.Bytes(), nil
}
