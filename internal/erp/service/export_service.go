package service

import (
	"context"
	"fmt"

	"github.com/RastislavMadac/angeapp/internal/erp/entity"
	"github.com/xuri/excelize/v2"
)

// ExportService 库存台账导出
type ExportService struct {
	*core
}

var stockExportHeaders = []string{"编码", "名称", "类型", "单位", "序列号管理", "总量", "预留", "可用", "单价"}

var movementExportHeaders = []string{"时间", "物品", "类型", "总量变化", "预留变化", "总量", "预留", "可用", "单据类型", "单据号", "操作人"}

// ExportStock writes counters and the movement journal to a workbook with a
// Stock and a Movements sheet.
func (s *ExportService) ExportStock(ctx context.Context) (*excelize.File, string, error) {
	items, err := s.repos.Item.List(ctx, "")
	if err != nil {
		return nil, "", fmt.Errorf("list items: %w", err)
	}
	movements, err := s.repos.Movement.ListAll(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("list movements: %w", err)
	}

	f := excelize.NewFile()
	stock := "Stock"
	f.SetSheetName("Sheet1", stock)
	journal := "Movements"
	if _, err := f.NewSheet(journal); err != nil {
		return nil, "", fmt.Errorf("create sheet: %w", err)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	writeHeaders(f, stock, stockExportHeaders, headerStyle)
	writeHeaders(f, journal, movementExportHeaders, headerStyle)

	codes := make(map[string]string, len(items))
	for i, it := range items {
		codes[it.ID] = it.Code
		row := i + 2
		serialized := "否"
		if it.IsSerialized {
			serialized = "是"
		}
		f.SetCellValue(stock, fmt.Sprintf("A%d", row), it.Code)
		f.SetCellValue(stock, fmt.Sprintf("B%d", row), it.Name)
		f.SetCellValue(stock, fmt.Sprintf("C%d", row), it.ItemType)
		f.SetCellValue(stock, fmt.Sprintf("D%d", row), it.Unit)
		f.SetCellValue(stock, fmt.Sprintf("E%d", row), serialized)
		f.SetCellValue(stock, fmt.Sprintf("F%d", row), it.Total.InexactFloat64())
		f.SetCellValue(stock, fmt.Sprintf("G%d", row), it.Reserved.InexactFloat64())
		f.SetCellValue(stock, fmt.Sprintf("H%d", row), it.Free.InexactFloat64())
		f.SetCellValue(stock, fmt.Sprintf("I%d", row), it.UnitPrice.InexactFloat64())
	}

	for i, m := range movements {
		row := i + 2
		f.SetCellValue(journal, fmt.Sprintf("A%d", row), m.CreatedAt.Format("2006-01-02 15:04:05"))
		f.SetCellValue(journal, fmt.Sprintf("B%d", row), codeOr(codes, m))
		f.SetCellValue(journal, fmt.Sprintf("C%d", row), m.MovementType)
		f.SetCellValue(journal, fmt.Sprintf("D%d", row), m.TotalDelta.InexactFloat64())
		f.SetCellValue(journal, fmt.Sprintf("E%d", row), m.ReservedDelta.InexactFloat64())
		f.SetCellValue(journal, fmt.Sprintf("F%d", row), m.TotalAfter.InexactFloat64())
		f.SetCellValue(journal, fmt.Sprintf("G%d", row), m.ReservedAfter.InexactFloat64())
		f.SetCellValue(journal, fmt.Sprintf("H%d", row), m.FreeAfter.InexactFloat64())
		f.SetCellValue(journal, fmt.Sprintf("I%d", row), m.ReferenceType)
		f.SetCellValue(journal, fmt.Sprintf("J%d", row), m.ReferenceCode)
		f.SetCellValue(journal, fmt.Sprintf("K%d", row), m.CreatedBy)
	}

	setColWidths(f, stock, []float64{14, 24, 14, 6, 10, 12, 12, 12, 10})
	setColWidths(f, journal, []float64{20, 14, 20, 12, 12, 12, 12, 12, 10, 14, 14})

	filename := fmt.Sprintf("Stock_%s.xlsx", s.now().Format("20060102"))
	return f, filename, nil
}

func writeHeaders(f *excelize.File, sheet string, headers []string, style int) {
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, style)
	}
}

func setColWidths(f *excelize.File, sheet string, widths []float64) {
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}
}

func codeOr(codes map[string]string, m entity.StockMovement) string {
	if c, ok := codes[m.StockItemID]; ok {
		return c
	}
	return m.StockItemID
}
