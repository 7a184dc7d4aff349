// Package testdata generates realistic lead fixtures for local
// development and tests.
package testdata

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/propertydeck/leadsync/pkg/models"
)

// LeadGeneratorConfig configures lead generation parameters
type LeadGeneratorConfig struct {
	Count       int
	Seed        int64
	EmailChance float64 // 0.0-1.0 probability of having an email
	PhoneChance float64
	AgentChance float64 // probability of an assigned agent
	AgencyIDs   []string
	AgentIDs    []string
	PropertyIDs []string
}

// DefaultConfig returns a generator config with realistic field coverage
func DefaultConfig(count int) LeadGeneratorConfig {
	return LeadGeneratorConfig{
		Count:       count,
		EmailChance: 0.85,
		PhoneChance: 0.9,
		AgentChance: 0.7,
		AgencyIDs:   []string{"agency-coastal", "agency-metro", "agency-highland"},
		AgentIDs:    []string{"agent-1", "agent-2", "agent-3", "agent-4"},
		PropertyIDs: []string{"prop-101", "prop-204", "prop-310", "prop-412"},
	}
}

var campaignNames = []string{
	"Spring Launch", "Summer Open House", "Waterfront Towers",
	"Downtown Lofts", "First Home Program", "Investor Week",
}

var sources = []string{
	"walk_in", "website", "referral", "social_media",
	"property_portal", "phone_inquiry", "email", "advertisement",
}

var priorities = []string{"hot", "warm", "cold", "not_interested"}

// Generate produces cfg.Count leads. A fixed Seed makes the output
// reproducible across runs.
func Generate(cfg LeadGeneratorConfig) []models.Lead {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	faker := gofakeit.New(seed)

	leads := make([]models.Lead, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		created := faker.DateRange(time.Now().AddDate(0, -6, 0), time.Now())
		lead := models.Lead{
			ID:           fmt.Sprintf("lead-%06d", i+1),
			FirstName:    faker.FirstName(),
			LastName:     faker.LastName(),
			Status:       models.PipelineStatuses[rng.Intn(len(models.PipelineStatuses))],
			Priority:     priorities[rng.Intn(len(priorities))],
			Source:       sources[rng.Intn(len(sources))],
			CampaignName: campaignNames[rng.Intn(len(campaignNames))],
			CreatedAt:    created,
			UpdatedAt:    faker.DateRange(created, time.Now()),
		}

		if rng.Float64() < cfg.EmailChance {
			lead.Email = faker.Email()
		}
		if rng.Float64() < cfg.PhoneChance {
			lead.Phone = faker.Phone()
		}
		if len(cfg.AgencyIDs) > 0 {
			agency := cfg.AgencyIDs[rng.Intn(len(cfg.AgencyIDs))]
			lead.Agency = &models.Ref{ID: agency, Name: faker.Company()}
		}
		if len(cfg.AgentIDs) > 0 && rng.Float64() < cfg.AgentChance {
			agent := cfg.AgentIDs[rng.Intn(len(cfg.AgentIDs))]
			lead.AssignedAgent = &models.Ref{ID: agent, Name: faker.Name()}
		}
		if len(cfg.PropertyIDs) > 0 && rng.Float64() < 0.5 {
			lead.Property = &models.Ref{ID: cfg.PropertyIDs[rng.Intn(len(cfg.PropertyIDs))]}
		}

		score := float64(rng.Intn(101))
		lead.Score = &score

		leads = append(leads, lead)
	}
	return leads
}
