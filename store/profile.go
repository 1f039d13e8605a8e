package store

import (
	"fmt"
	"net/url"
)

// Paths are the pricing-service endpoints of one event type. Each template
// takes the url-escaped event key.
type Paths struct {
	Event              string
	Price              string
	Checkout           string
	PriorRegistrations string
	AdminEventInfo     string
}

// Profile parameterizes a Store for one event type.
type Profile struct {
	Name       string
	UseTickets bool
	Paths      Paths
}

var defaultPaths = Paths{
	Event:              "/event/%s",
	Price:              "/price/%s",
	Checkout:           "/checkout/%s",
	PriorRegistrations: "/prior_registrations/%s",
	AdminEventInfo:     "/admin/event_info/%s",
}

// WorkshopsProfile only sells products (workshops, parties, passes).
var WorkshopsProfile = Profile{
	Name:  "workshops",
	Paths: defaultPaths,
}

// RegistrationProfile sells tickets and products and supports split payment.
var RegistrationProfile = Profile{
	Name:       "registration",
	UseTickets: true,
	Paths:      defaultPaths,
}

// ProfileByName looks up a built-in profile.
func ProfileByName(name string) (Profile, error) {
	switch name {
	case WorkshopsProfile.Name:
		return WorkshopsProfile, nil
	case RegistrationProfile.Name, "":
		return RegistrationProfile, nil
	default:
		return Profile{}, fmt.Errorf("unknown event profile %q", name)
	}
}

func (p Paths) EventPath(eventKey string) string {
	return fmt.Sprintf(p.Event, url.PathEscape(eventKey))
}

func (p Paths) PricePath(eventKey string) string {
	return fmt.Sprintf(p.Price, url.PathEscape(eventKey))
}

func (p Paths) CheckoutPath(eventKey string) string {
	return fmt.Sprintf(p.Checkout, url.PathEscape(eventKey))
}

func (p Paths) PriorRegistrationsPath(eventKey string) string {
	return fmt.Sprintf(p.PriorRegistrations, url.PathEscape(eventKey))
}

func (p Paths) AdminEventInfoPath(eventKey string) string {
	return fmt.Sprintf(p.AdminEventInfo, url.PathEscape(eventKey))
}
