package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/SscSPs/credit_ledger/internal/apperrors"
	"github.com/SscSPs/credit_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/credit_ledger/internal/core/ports/services"
	"github.com/SscSPs/credit_ledger/internal/utils"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// StarterPackProductID is the store product id of the only credit pack on sale.
const StarterPackProductID = "sora_starter_pack"

// creditTable maps model -> seconds -> credits.
var creditTable = map[string]map[int]int64{
	"sora-2":     {4: 100, 8: 150, 12: 200},
	"sora-2-pro": {4: 280, 8: 450, 12: 560},
}

var specValidator = validator.New()

type pricingService struct {
	packs []domain.CreditPack
}

// NewPricingService returns the fixed price list and pack catalogue.
func NewPricingService() portssvc.PricingSvc {
	return &pricingService{
		packs: []domain.CreditPack{{
			ProductID:   StarterPackProductID,
			Credits:     1000,
			PriceUSD:    decimal.RequireFromString("9.99"),
			DisplayName: "Starter Pack",
		}},
	}
}

var _ portssvc.PricingSvc = (*pricingService)(nil)

// validateSpec checks the spec against its struct tags, skipping the named fields.
func validateSpec(spec domain.JobSpec, except ...string) error {
	var err error
	if len(except) > 0 {
		err = specValidator.StructExcept(spec, except...)
	} else {
		err = specValidator.Struct(spec)
	}
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", strings.ToLower(fe.Field()), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", apperrors.ErrValidation, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
}

func (p *pricingService) CostFor(spec domain.JobSpec) (int64, error) {
	if cost, ok := creditTable[spec.Model][spec.Seconds]; ok {
		return cost, nil
	}
	return 0, fmt.Errorf("%w: invalid model/duration combination: %s %ds. Supported: 4s, 8s, 12s",
		apperrors.ErrValidation, spec.Model, spec.Seconds)
}

func (p *pricingService) CreditsToUSD(credits int64) string {
	return utils.FormatUSD(utils.CreditsToUSD(credits))
}

func (p *pricingService) Packs() []domain.CreditPack {
	return append([]domain.CreditPack(nil), p.packs...)
}

func (p *pricingService) FindPack(productID string) (domain.CreditPack, bool) {
	for _, pack := range p.packs {
		if pack.ProductID == productID {
			return pack, true
		}
	}
	return domain.CreditPack{}, false
}
