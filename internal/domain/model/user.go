package model

// User is the host application's user as seen by billing.
type User struct {
	ID                   string `json:"id"`
	Email                string `json:"email"`
	Name                 string `json:"name"`
	EmailVerified        bool   `json:"emailVerified"`
	PaystackCustomerCode string `json:"paystackCustomerCode,omitempty"`
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

type MemberRole string

const (
	MemberRoleOwner  MemberRole = "owner"
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
)

// CanManageBilling reports whether the role may act on the organization's billing.
func (r MemberRole) CanManageBilling() bool {
	return r == MemberRoleOwner || r == MemberRoleAdmin
}

// Organization is a billing target other than a user.
type Organization struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	BillingEmail         string `json:"billingEmail,omitempty"`
	PaystackCustomerCode string `json:"paystackCustomerCode,omitempty"`
}

type Member struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organizationId"`
	UserID         string     `json:"userId"`
	Role           MemberRole `json:"role"`
	Email          string     `json:"email,omitempty"`
}

// Session identifies the authenticated caller of a billing endpoint.
type Session struct {
	ID   string
	User *User
}
