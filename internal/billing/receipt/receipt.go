// Package receipt renders paid charges as PDF documents.
package receipt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/smallbiznis/clubhouse/internal/billing/domain"
)

const dateLayout = "02 Jan 2006"

type Renderer struct{}

func NewRenderer() domain.ReceiptRenderer {
	return &Renderer{}
}

func (r *Renderer) Render(data domain.ReceiptData) ([]byte, error) {
	charge := data.Charge
	if charge.Status != domain.ChargeStatusPaid || charge.PaidAt == nil {
		return nil, domain.ErrChargeNotPaid
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(6, "Receipt", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(6, data.OrgName, props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Receipt number: "+charge.ID.String(), props.Text{Top: 0}),
			text.New("Date paid: "+charge.PaidAt.UTC().Format(dateLayout), props.Text{Top: 4}),
			text.New("Issued: "+data.IssuedAt.UTC().Format(dateLayout), props.Text{Top: 8}),
		),
		col.New(6).Add(
			text.New("Received from", props.Text{Style: fontstyle.Bold, Align: align.Right}),
			text.New(data.MemberName, props.Text{Top: 5, Align: align.Right}),
		),
	)

	m.AddRow(15,
		text.NewCol(12, FormatAmount(charge.Amount)+" paid on "+charge.PaidAt.UTC().Format(dateLayout), props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	m.AddRow(10,
		text.NewCol(8, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		text.NewCol(8, Description(charge), props.Text{Size: 9}),
		text.NewCol(4, FormatAmount(charge.Amount), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Size: 9, Style: fontstyle.Bold}),
		text.NewCol(2, FormatAmount(charge.Amount), props.Text{Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return doc.GetBytes(), nil
}

// Description is the line item text for a charge.
func Description(charge domain.Charge) string {
	switch charge.Type {
	case domain.ChargeTypeMembership:
		return "Membership fee (" + charge.CycleKey + ")"
	case domain.ChargeTypePerSession:
		return "Session fee (" + strings.TrimPrefix(charge.CycleKey, "GAME:") + ")"
	default:
		return string(charge.Type) + " (" + charge.CycleKey + ")"
	}
}

// FormatAmount groups minor units in thousands, e.g. 150000 -> "150,000".
func FormatAmount(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return sign + b.String()
}

