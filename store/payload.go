package store

// Submission field names understood by the pricing service's form parser.
const (
	FieldName              = "name"
	FieldEmail             = "email"
	FieldLocation          = "location"
	FieldComment           = "comment"
	FieldDanceRole         = "dance_role"
	FieldPartnerName       = "partner_name"
	FieldPartnerEmail      = "partner_email"
	FieldPartnerLocation   = "partner_location"
	FieldDiscountCode      = "generic_discount_code"
	FieldPartnerToken      = "partner_token"
	FieldRegistrationToken = "registration_token"
	FieldCSRFToken         = "csrf_token"
	FieldPayAll            = "pay_all"

	addSuffix = "-add"
)

// AddField is the submission field carrying the choice for an item key.
func AddField(key string) string {
	return key + addSuffix
}

// SubmissionPayload derives the request body for the price, checkout and
// prior-registration endpoints. It has no side effects. Every value is a
// string; unset optional fields are empty strings.
func (s *Store) SubmissionPayload() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reg := s.registration
	payAll := ""
	if reg.PayAll {
		payAll = "y"
	}

	data := map[string]string{
		FieldName:              reg.Primary.Name,
		FieldEmail:             reg.Primary.Email,
		FieldLocation:          reg.Primary.Location,
		FieldComment:           reg.Primary.Comment,
		FieldDanceRole:         reg.Primary.DanceRole,
		FieldPartnerName:       reg.Partner.Name,
		FieldPartnerEmail:      reg.Partner.Email,
		FieldPartnerLocation:   reg.Partner.Location,
		FieldDiscountCode:      reg.DiscountCode,
		FieldPartnerToken:      reg.PartnerToken,
		FieldRegistrationToken: reg.RegistrationToken,
		FieldCSRFToken:         s.page.CSRFToken,
		FieldPayAll:            payAll,
	}
	for _, item := range s.selectedLocked() {
		data[AddField(item.Key)] = string(item.Choice)
	}
	return data
}
