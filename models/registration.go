package models

// PersonInfo holds the form fields of one participant.
type PersonInfo struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Location  string `json:"location"`
	DanceRole string `json:"dance_role,omitempty"`
	Comment   string `json:"comment,omitempty"`
}

// RegistrationInfo is the incrementally filled registration form.
type RegistrationInfo struct {
	Primary           PersonInfo `json:"primary"`
	Partner           PersonInfo `json:"partner"`
	DiscountCode      string     `json:"discount_code"`
	PartnerToken      string     `json:"partner_token"`
	RegistrationToken string     `json:"registration_token"`
	PayAll            bool       `json:"pay_all"`
}

// NewRegistrationInfo returns an empty form that pays everything up front.
func NewRegistrationInfo() RegistrationInfo {
	return RegistrationInfo{PayAll: true}
}

// RegistrationPatch is a partial form update; nil fields are left untouched.
type RegistrationPatch struct {
	Name              *string `json:"name,omitempty"`
	Email             *string `json:"email,omitempty"`
	Location          *string `json:"location,omitempty"`
	DanceRole         *string `json:"dance_role,omitempty"`
	Comment           *string `json:"comment,omitempty"`
	PartnerName       *string `json:"partner_name,omitempty"`
	PartnerEmail      *string `json:"partner_email,omitempty"`
	PartnerLocation   *string `json:"partner_location,omitempty"`
	DiscountCode      *string `json:"discount_code,omitempty"`
	PartnerToken      *string `json:"partner_token,omitempty"`
	RegistrationToken *string `json:"registration_token,omitempty"`
	PayAll            *bool   `json:"pay_all,omitempty"`
}

// Apply copies every set field of the patch onto r.
func (p RegistrationPatch) Apply(r *RegistrationInfo) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&r.Primary.Name, p.Name)
	set(&r.Primary.Email, p.Email)
	set(&r.Primary.Location, p.Location)
	set(&r.Primary.DanceRole, p.DanceRole)
	set(&r.Primary.Comment, p.Comment)
	set(&r.Partner.Name, p.PartnerName)
	set(&r.Partner.Email, p.PartnerEmail)
	set(&r.Partner.Location, p.PartnerLocation)
	set(&r.DiscountCode, p.DiscountCode)
	set(&r.PartnerToken, p.PartnerToken)
	set(&r.RegistrationToken, p.RegistrationToken)
	if p.PayAll != nil {
		r.PayAll = *p.PayAll
	}
}
