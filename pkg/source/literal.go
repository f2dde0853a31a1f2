package source

import (
	"context"

	"github.com/BeAltea/altea-pay/pkg/models"
)

// Literal is a batch embedded in a plan file. Each record is the tuple
// (document, name, amount, due date, days overdue, city, cancellation date).
type Literal struct {
	Records [][]string
}

func (l *Literal) Rows(ctx context.Context) ([]models.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows := make([]models.Row, 0, len(l.Records))
	for i, rec := range l.Records {
		rows = append(rows, models.RowFromFields(i+1, rec))
	}
	return rows, nil
}
