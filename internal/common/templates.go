package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"propie-escrow-go/internal/models"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// EscrowTemplate is a reusable set of participants, conditions and milestones.
// Amounts are strings so they parse exactly into decimals.
type EscrowTemplate struct {
	Name         string                `yaml:"name"`
	Description  string                `yaml:"description"`
	Currency     string                `yaml:"currency"`
	Participants []ParticipantTemplate `yaml:"participants"`
	Conditions   []ConditionTemplate   `yaml:"conditions"`
	Milestones   []MilestoneTemplate   `yaml:"milestones"`
}

type ParticipantTemplate struct {
	Key               string   `yaml:"key"`
	Type              string   `yaml:"type"`
	Name              string   `yaml:"name"`
	Email             string   `yaml:"email"`
	Role              string   `yaml:"role"`
	Permissions       []string `yaml:"permissions"`
	SignatureRequired bool     `yaml:"signature_required"`
}

type ConditionTemplate struct {
	Key               string   `yaml:"key"`
	Type              string   `yaml:"type"`
	Title             string   `yaml:"title"`
	Description       string   `yaml:"description"`
	Priority          string   `yaml:"priority"`
	RequiredApprovers []string `yaml:"required_approvers"`
	DueInDays         int      `yaml:"due_in_days"`
}

type MilestoneTemplate struct {
	Key               string   `yaml:"key"`
	Title             string   `yaml:"title"`
	Description       string   `yaml:"description"`
	Order             int      `yaml:"order"`
	ReleaseAmount     string   `yaml:"release_amount"`
	ReleasePercentage string   `yaml:"release_percentage"`
	Conditions        []string `yaml:"conditions"`
	Dependencies      []string `yaml:"dependencies"`
	Participants      []string `yaml:"participants"`
}

type TemplatesConfig struct {
	Templates []EscrowTemplate `yaml:"templates"`
}

func LoadTemplates(templatesFile string) ([]EscrowTemplate, error) {
	var templatesPath string
	if filepath.IsAbs(templatesFile) {
		templatesPath = templatesFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		templatesPath = filepath.Join(wd, templatesFile)
	}

	data, err := os.ReadFile(templatesPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", templatesFile, err)
	}
	return ParseTemplates(data)
}

func ParseTemplates(data []byte) ([]EscrowTemplate, error) {
	var config TemplatesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse templates: %w", err)
	}

	seen := make(map[string]bool)
	for i, t := range config.Templates {
		if t.Name == "" {
			return nil, fmt.Errorf("template at index %d missing name", i)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("duplicate template %q", t.Name)
		}
		seen[t.Name] = true
		if len(t.Participants) == 0 {
			return nil, fmt.Errorf("template %q has no participants", t.Name)
		}
	}
	return config.Templates, nil
}

func FindTemplate(templates []EscrowTemplate, name string) (*EscrowTemplate, error) {
	var names []string
	for i := range templates {
		if templates[i].Name == name {
			return &templates[i], nil
		}
		names = append(names, templates[i].Name)
	}
	return nil, fmt.Errorf("template %q not found (available: %s)", name, strings.Join(names, ", "))
}

// ToInput turns the template into a create request. Condition due dates are
// offset from now.
func (t *EscrowTemplate) ToInput(transactionId, propertyId string, now time.Time) (models.CreateAccountInput, error) {
	in := models.CreateAccountInput{
		TransactionId: transactionId,
		PropertyId:    propertyId,
		Currency:      t.Currency,
		Metadata:      map[string]string{"template": t.Name},
	}

	for _, p := range t.Participants {
		permissions := make([]models.Permission, 0, len(p.Permissions))
		for _, perm := range p.Permissions {
			permissions = append(permissions, models.Permission(strings.ToUpper(perm)))
		}
		in.Participants = append(in.Participants, models.ParticipantInput{
			Key:               p.Key,
			Type:              models.ParticipantType(p.Type),
			Name:              p.Name,
			Email:             p.Email,
			Role:              models.ParticipantRole(p.Role),
			Permissions:       permissions,
			SignatureRequired: p.SignatureRequired,
		})
	}

	for _, c := range t.Conditions {
		condition := models.ConditionInput{
			Key:               c.Key,
			Type:              models.ConditionType(c.Type),
			Title:             c.Title,
			Description:       c.Description,
			Priority:          models.Priority(c.Priority),
			RequiredApprovers: c.RequiredApprovers,
		}
		if c.DueInDays > 0 {
			due := now.AddDate(0, 0, c.DueInDays)
			condition.DueDate = &due
		}
		in.Conditions = append(in.Conditions, condition)
	}

	for _, m := range t.Milestones {
		amount, err := parseOptionalDecimal(m.ReleaseAmount)
		if err != nil {
			return in, fmt.Errorf("milestone %q release_amount: %w", m.Key, err)
		}
		percentage, err := parseOptionalDecimal(m.ReleasePercentage)
		if err != nil {
			return in, fmt.Errorf("milestone %q release_percentage: %w", m.Key, err)
		}
		in.Milestones = append(in.Milestones, models.MilestoneInput{
			Key:               m.Key,
			Title:             m.Title,
			Description:       m.Description,
			Order:             m.Order,
			ReleaseAmount:     amount,
			ReleasePercentage: percentage,
			Conditions:        m.Conditions,
			Dependencies:      m.Dependencies,
			Participants:      m.Participants,
		})
	}
	return in, nil
}

func parseOptionalDecimal(value string) (decimal.Decimal, error) {
	if strings.TrimSpace(value) == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.TrimSpace(value))
}
