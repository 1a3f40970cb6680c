package escrow

import (
	"strings"

	"propie-escrow-go/internal/models"

	"github.com/shopspring/decimal"
)

var (
	validParticipantTypes = map[models.ParticipantType]bool{
		models.ParticipantBuyer: true, models.ParticipantSeller: true, models.ParticipantDeveloper: true,
		models.ParticipantAgent: true, models.ParticipantSolicitor: true, models.ParticipantLender: true,
		models.ParticipantPlatform: true,
	}
	validRoles = map[models.ParticipantRole]bool{
		models.RoleDepositor: true, models.RoleBeneficiary: true, models.RoleApprover: true,
		models.RoleObserver: true, models.RoleAdministrator: true,
	}
	validPermissions = map[models.Permission]bool{
		models.PermissionViewDetails: true, models.PermissionDepositFunds: true,
		models.PermissionRequestRelease: true, models.PermissionApproveRelease: true,
		models.PermissionUploadDocuments: true, models.PermissionRaiseDispute: true,
		models.PermissionManageEscrow: true,
	}
	validConditionTypes = map[models.ConditionType]bool{
		models.ConditionDocumentUpload: true, models.ConditionSignatureRequired: true,
		models.ConditionPaymentConfirmation: true, models.ConditionLegalApproval: true,
		models.ConditionTitleVerification: true, models.ConditionInsuranceApproval: true,
		models.ConditionMortgageApproval: true, models.ConditionHTBApproval: true,
		models.ConditionConstructionMilestone: true, models.ConditionTimeDelay: true,
		models.ConditionCustom: true,
	}
	validPriorities = map[models.Priority]bool{
		models.PriorityLow: true, models.PriorityMedium: true, models.PriorityHigh: true, models.PriorityCritical: true,
	}
	validFundSources = map[models.FundSource]bool{
		models.FundSourceBuyerDeposit: true, models.FundSourceContractualDeposit: true,
		models.FundSourceStagePayment: true, models.FundSourceHTBBenefit: true,
		models.FundSourceMortgageDrawdown: true, models.FundSourceAgentCommission: true,
		models.FundSourceDeveloperContribution: true, models.FundSourceOther: true,
	}
	validPaymentMethods = map[models.PaymentMethod]bool{
		models.PaymentBankTransfer: true, models.PaymentCard: true, models.PaymentDirectDebit: true,
		models.PaymentCheque: true, models.PaymentHTBScheme: true, models.PaymentOther: true,
	}
)

var hundred = decimal.NewFromInt(100)

// amountPlaces is the minor unit precision of every supported currency
const amountPlaces = 2

// validateAmount requires a positive amount expressible in minor units
func validateAmount(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalid(field, "must be positive, got %s", amount.String())
	}
	if !amount.Equal(amount.Round(amountPlaces)) {
		return invalid(field, "%s has more than %d decimal places", amount.String(), amountPlaces)
	}
	return nil
}

// validateCreateInput checks the prototypes and their key references
func validateCreateInput(in models.CreateAccountInput) error {
	if strings.TrimSpace(in.TransactionId) == "" {
		return invalid("transaction_id", "is required")
	}
	if strings.TrimSpace(in.PropertyId) == "" {
		return invalid("property_id", "is required")
	}
	if len(in.Participants) == 0 {
		return invalid("participants", "at least one participant is required")
	}

	participantKeys := make(map[string]bool)
	for i, p := range in.Participants {
		if !validParticipantTypes[p.Type] {
			return invalid("participants", "participant %d has unknown type %q", i, p.Type)
		}
		if !validRoles[p.Role] {
			return invalid("participants", "participant %d has unknown role %q", i, p.Role)
		}
		if strings.TrimSpace(p.Name) == "" {
			return invalid("participants", "participant %d has no name", i)
		}
		for _, perm := range p.Permissions {
			if !validPermissions[perm] {
				return invalid("participants", "participant %d has unknown permission %q", i, perm)
			}
		}
		if err := claimKey(participantKeys, "participants", p.Key); err != nil {
			return err
		}
	}

	conditionKeys := make(map[string]bool)
	for i, c := range in.Conditions {
		if !validConditionTypes[c.Type] {
			return invalid("conditions", "condition %d has unknown type %q", i, c.Type)
		}
		if strings.TrimSpace(c.Title) == "" {
			return invalid("conditions", "condition %d has no title", i)
		}
		if c.Priority != "" && !validPriorities[c.Priority] {
			return invalid("conditions", "condition %d has unknown priority %q", i, c.Priority)
		}
		for _, ref := range c.RequiredApprovers {
			if !participantKeys[ref] {
				return invalid("conditions", "condition %d references unknown participant %q", i, ref)
			}
		}
		if err := claimKey(conditionKeys, "conditions", c.Key); err != nil {
			return err
		}
	}

	milestoneKeys := make(map[string]bool)
	for _, m := range in.Milestones {
		if err := claimKey(milestoneKeys, "milestones", m.Key); err != nil {
			return err
		}
	}

	for i, m := range in.Milestones {
		if strings.TrimSpace(m.Title) == "" {
			return invalid("milestones", "milestone %d has no title", i)
		}
		if m.ReleaseAmount.IsNegative() {
			return invalid("milestones", "milestone %d has a negative release amount", i)
		}
		if !m.ReleaseAmount.Equal(m.ReleaseAmount.Round(amountPlaces)) {
			return invalid("milestones", "milestone %d release amount has more than %d decimal places", i, amountPlaces)
		}
		if m.ReleasePercentage.IsNegative() || m.ReleasePercentage.GreaterThan(hundred) {
			return invalid("milestones", "milestone %d release percentage must be between 0 and 100", i)
		}
		for _, ref := range m.Conditions {
			if !conditionKeys[ref] {
				return invalid("milestones", "milestone %d references unknown condition %q", i, ref)
			}
		}
		for _, ref := range m.Dependencies {
			if !milestoneKeys[ref] {
				return invalid("milestones", "milestone %d depends on unknown milestone %q", i, ref)
			}
			if ref == m.Key {
				return invalid("milestones", "milestone %q depends on itself", m.Key)
			}
		}
		for _, ref := range m.Participants {
			if !participantKeys[ref] {
				return invalid("milestones", "milestone %d references unknown participant %q", i, ref)
			}
		}
	}

	if cycle := findDependencyCycle(in.Milestones); cycle != "" {
		return invalid("milestones", "dependency cycle through milestone %q", cycle)
	}
	return nil
}

func claimKey(seen map[string]bool, field, key string) error {
	if key == "" {
		return nil
	}
	if seen[key] {
		return invalid(field, "duplicate key %q", key)
	}
	seen[key] = true
	return nil
}

// findDependencyCycle returns a milestone key on a dependency cycle, or "" if there is none
func findDependencyCycle(milestones []models.MilestoneInput) string {
	deps := make(map[string][]string, len(milestones))
	for _, m := range milestones {
		if m.Key != "" {
			deps[m.Key] = m.Dependencies
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(deps))

	var visit func(key string) string
	visit = func(key string) string {
		switch state[key] {
		case visiting:
			return key
		case done:
			return ""
		}
		state[key] = visiting
		for _, dep := range deps[key] {
			if found := visit(dep); found != "" {
				return found
			}
		}
		state[key] = done
		return ""
	}

	for _, m := range milestones {
		if m.Key == "" {
			continue
		}
		if found := visit(m.Key); found != "" {
			return found
		}
	}
	return ""
}
