package service

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/bazcar/bazcar-backend/internal/app/model"
	"github.com/bazcar/bazcar-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
)

const quoteSheet = "Расчёт"

var quoteHeaders = []string{
	"Автомобиль", "Получение", "Возврат", "Дней", "Цена за день",
	"Доставка", "Доп. услуги", "Имя", "Телефон", "Итого",
}

// QuoteExporter renders a cart as an xlsx price quote.
type QuoteExporter struct {
	services func() []model.AdditionalService
}

func NewQuoteExporter(services func() []model.AdditionalService) *QuoteExporter {
	if services == nil {
		services = model.DefaultAdditionalServices
	}
	return &QuoteExporter{services: services}
}

// Export writes one row per item, then the total and, when a discount is
// set, the discounted total.
func (e *QuoteExporter) Export(view *CheckoutView) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", quoteSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	for col, header := range quoteHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(quoteSheet, cell, header)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(quoteHeaders))
	f.SetCellStyle(quoteSheet, "A1", lastCol+"1", bold)
	f.SetColWidth(quoteSheet, "A", "A", 32)
	f.SetColWidth(quoteSheet, "G", "G", 36)

	labels := make(map[string]string)
	for _, svc := range e.services() {
		labels[svc.ServiceID] = svc.Label
	}

	row := 2
	for _, item := range view.Items {
		services := make([]string, 0, len(item.Services))
		for _, id := range item.Services {
			if line, ok := item.SelectedService(id); ok {
				services = append(services, line.Label)
			} else if label, ok := labels[id]; ok {
				services = append(services, label)
			} else {
				services = append(services, id)
			}
		}
		values := []interface{}{
			item.Car.Name, item.PickupDate, item.ReturnDate, item.RentalDays, item.DailyPrice,
			item.DeliveryOption.Label, strings.Join(services, ", "), item.Name, item.Phone, item.TotalPrice,
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(quoteSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", row, err)
		}
		row++
	}

	row++
	totalLabel := fmt.Sprintf("I%d", row)
	f.SetCellValue(quoteSheet, totalLabel, "Итого")
	f.SetCellValue(quoteSheet, fmt.Sprintf("J%d", row), view.Total)
	f.SetCellStyle(quoteSheet, totalLabel, fmt.Sprintf("J%d", row), bold)

	if view.Discount != nil {
		row++
		f.SetCellValue(quoteSheet, fmt.Sprintf("I%d", row), fmt.Sprintf("Скидка %d%% (%s)", view.Discount.Percent, view.Discount.Code))
		f.SetCellValue(quoteSheet, fmt.Sprintf("J%d", row), -view.DiscountAmount)
		row++
		f.SetCellValue(quoteSheet, fmt.Sprintf("I%d", row), "К оплате")
		f.SetCellValue(quoteSheet, fmt.Sprintf("J%d", row), view.TotalWithDiscount)
		f.SetCellStyle(quoteSheet, fmt.Sprintf("I%d", row), fmt.Sprintf("J%d", row), bold)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		logger.Error("Failed to render quote", err)
		return nil, fmt.Errorf("failed to render quote: %w", err)
	}
	return bytes.Clone(buf.Bytes()), nil
}
