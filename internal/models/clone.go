package models

import "time"

// Clone returns a deep copy so callers never share slices with a store
func (a *EscrowAccount) Clone() *EscrowAccount {
	if a == nil {
		return nil
	}
	out := *a
	out.Metadata = cloneMap(a.Metadata)
	out.ClosedAt = cloneTime(a.ClosedAt)

	out.Participants = make([]Participant, len(a.Participants))
	for i, p := range a.Participants {
		p.Permissions = append([]Permission(nil), p.Permissions...)
		p.ApprovedAt = cloneTime(p.ApprovedAt)
		out.Participants[i] = p
	}

	out.Conditions = make([]Condition, len(a.Conditions))
	for i, c := range a.Conditions {
		c.RequiredApprovers = append([]string(nil), c.RequiredApprovers...)
		c.Documents = append([]string(nil), c.Documents...)
		c.DueDate = cloneTime(c.DueDate)
		c.VerifiedAt = cloneTime(c.VerifiedAt)
		out.Conditions[i] = c
	}

	out.Milestones = make([]Milestone, len(a.Milestones))
	for i, m := range a.Milestones {
		m.Conditions = append([]string(nil), m.Conditions...)
		m.Dependencies = append([]string(nil), m.Dependencies...)
		m.Participants = append([]string(nil), m.Participants...)
		m.DueDate = cloneTime(m.DueDate)
		m.CompletedAt = cloneTime(m.CompletedAt)
		out.Milestones[i] = m
	}

	out.Funds = make([]Fund, len(a.Funds))
	for i, f := range a.Funds {
		f.ReleaseConditions = append([]string(nil), f.ReleaseConditions...)
		f.Metadata = cloneMap(f.Metadata)
		out.Funds[i] = f
	}

	out.Releases = make([]Release, len(a.Releases))
	for i, r := range a.Releases {
		r.FundIds = append([]string(nil), r.FundIds...)
		r.Approvals = append([]ReleaseApproval(nil), r.Approvals...)
		r.ReleasedAt = cloneTime(r.ReleasedAt)
		if r.Failure != nil {
			failure := *r.Failure
			r.Failure = &failure
		}
		out.Releases[i] = r
	}

	return &out
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
