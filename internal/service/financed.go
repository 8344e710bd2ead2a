package service

import (
	"context"

	"cartera-reconciler/internal/classifier"
	"cartera-reconciler/internal/models"
	carterrors "cartera-reconciler/pkg/errors"
)

// FinancedCounters is the derived view of the financed-policy collection,
// recomputed in full from each snapshot.
type FinancedCounters struct {
	Total int `json:"total"`

	Red    int `json:"red"`
	Yellow int `json:"yellow"`
	Green  int `json:"green"`

	Montadas      int `json:"montadas"`
	Recaudadas    int `json:"recaudadas"`
	Firmadas      int `json:"firmadas"`
	Desembolsadas int `json:"desembolsadas"`

	EndosoSi int `json:"endoso_si"`

	// CertPending: disbursed with endorsement decided yes but the
	// certification still missing. MailPending: certified but the
	// endorsement mail not yet sent.
	CertPending int `json:"cert_pending"`
	MailPending int `json:"mail_pending"`
}

// ComputeFinancedCounters derives all financed-workflow counters.
func ComputeFinancedCounters(policies []*models.FinancedPolicy) FinancedCounters {
	c := FinancedCounters{Total: len(policies)}
	for _, p := range policies {
		switch classifier.Semaforo(p) {
		case classifier.SemaforoRed:
			c.Red++
		case classifier.SemaforoYellow:
			c.Yellow++
		case classifier.SemaforoGreen:
			c.Green++
		}

		if p.Montada {
			c.Montadas++
		}
		if p.Recaudada {
			c.Recaudadas++
		}
		if p.Firmada {
			c.Firmadas++
		}
		if p.Desembolsada {
			c.Desembolsadas++
		}

		if p.Endoso == "SI" {
			c.EndosoSi++
			if p.Desembolsada && !p.Certificacion {
				c.CertPending++
			}
			if p.Certificacion && !p.CorreoEndoso {
				c.MailPending++
			}
		}
	}
	return c
}

func (s *Service) requireFinanced() error {
	if s.financed == nil {
		return carterrors.New(carterrors.CategoryConfiguration, carterrors.CodeMissingConfig,
			"financed-policy collection not configured")
	}
	return nil
}

// AddFinanced registers a new financed policy.
func (s *Service) AddFinanced(ctx context.Context, p *models.FinancedPolicy) (string, error) {
	if err := s.requireFinanced(); err != nil {
		return "", err
	}
	c := *p
	c.Tipo = models.FinancedType
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	return s.financed.Create(ctx, &c)
}

// UpdateFinanced replaces a financed policy's fields.
func (s *Service) UpdateFinanced(ctx context.Context, id string, p *models.FinancedPolicy) error {
	if err := s.requireFinanced(); err != nil {
		return err
	}
	return s.financed.Update(ctx, id, p)
}

// DeleteFinanced removes a financed policy permanently.
func (s *Service) DeleteFinanced(ctx context.Context, id string) error {
	if err := s.requireFinanced(); err != nil {
		return err
	}
	return s.financed.Delete(ctx, id)
}

// FinancedOverview lists the financed policies with their counters.
func (s *Service) FinancedOverview(ctx context.Context) ([]*models.FinancedPolicy, FinancedCounters, error) {
	if err := s.requireFinanced(); err != nil {
		return nil, FinancedCounters{}, err
	}
	policies, err := s.financed.ListAll(ctx)
	if err != nil {
		return nil, FinancedCounters{}, err
	}
	return policies, ComputeFinancedCounters(policies), nil
}
