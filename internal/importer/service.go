package importer

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/MrJamesThe3rd/budget/internal/budget"
	"github.com/MrJamesThe3rd/budget/internal/importer/bankcsv"
	"github.com/MrJamesThe3rd/budget/internal/importer/ofx"
)

var ErrUnknownFormat = errors.New("unknown statement format")

type Service struct {
	importers map[Format]Importer
}

// NewService returns a service reading statement dates in loc.
func NewService(loc *time.Location) *Service {
	return &Service{
		importers: map[Format]Importer{
			FormatCSV: bankcsv.NewParser(bankcsv.WithLocation(loc)),
			FormatOFX: ofx.NewParser(ofx.WithLocation(loc)),
		},
	}
}

func (s *Service) Import(format Format, r io.Reader) ([]budget.CreateExpenseParams, error) {
	importer, ok := s.importers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	return importer.Parse(r)
}
