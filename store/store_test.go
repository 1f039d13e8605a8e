package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-storefront/models"
)

type countingReloader struct {
	calls   int
	reasons []string
}

func (r *countingReloader) Reload(reason string) {
	r.calls++
	r.reasons = append(r.reasons, reason)
}

func ptr[T any](v T) *T { return &v }

func newTestStore(t *testing.T) (*Store, *countingReloader) {
	t.Helper()
	reloader := &countingReloader{}
	s := New(RegistrationProfile, models.PageContext{
		PublishableKey: "pk_test",
		CSRFToken:      "csrf-123",
		EventKey:       "salty_breezle",
	}, reloader)
	s.SetEvent(models.EventInfo{
		Name: "Salty Breezle",
		Key:  "salty_breezle",
		Tickets: []models.SelectableItem{
			{Key: "a1", Title: "Lindy Hop 1"},
			{Key: "b1", Title: "Shag Intensive"},
		},
		Products: []models.SelectableItem{
			{Key: "tshirt", Title: "T-shirt"},
		},
	})
	return s, reloader
}

func pricingResponse() *models.PricingResponse {
	return &models.PricingResponse{
		OrderSummary: models.OrderSummary{
			TotalPrice:     50,
			TransactionFee: 1.7,
			Total:          51.7,
			Items:          []models.OrderItem{{Name: "Shag Intensive", Price: 50, DanceRole: "leader"}},
			PayNowTotal:    ptr(51.7),
		},
		Errors:    models.FieldErrors{"email": {"Invalid email address."}},
		NewPrices: map[string]float64{"b1": 45},
		Stripe:    &models.PaymentSetup{Amount: 5170, Email: "jane@example.com"},
	}
}

func TestSetSelection(t *testing.T) {
	t.Parallel()

	t.Run("sets choice on matching key", func(t *testing.T) {
		s, _ := newTestStore(t)
		found, err := s.SetSelection("b1", models.ChoiceCouple)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []models.SelectedItem{{Key: "b1", Choice: models.ChoiceCouple}}, s.SelectedItems())
	})

	t.Run("unknown key is a no-op", func(t *testing.T) {
		s, _ := newTestStore(t)
		before := s.Snapshot()
		found, err := s.SetSelection("zz", models.ChoiceLeader)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, before, s.Snapshot())
	})

	t.Run("rejects unknown choice", func(t *testing.T) {
		s, _ := newTestStore(t)
		_, err := s.SetSelection("a1", models.Choice("solo"))
		assert.ErrorIs(t, err, ErrInvalidChoice)
	})

	t.Run("clearing a choice deselects the item", func(t *testing.T) {
		s, _ := newTestStore(t)
		_, _ = s.SetSelection("a1", models.ChoiceLeader)
		_, _ = s.SetSelection("a1", models.ChoiceNone)
		assert.Empty(t, s.SelectedItems())
	})
}

func TestSelectedItemsAndPartnerRequired(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	assert.False(t, s.PartnerRequired())

	_, err := s.SetSelection("b1", models.ChoiceCouple)
	require.NoError(t, err)

	assert.Equal(t, []models.SelectedItem{{Key: "b1", Choice: models.ChoiceCouple}}, s.SelectedItems())
	assert.True(t, s.PartnerRequired())
	assert.True(t, s.Snapshot().PartnerRequired)
}

func TestWorkshopsProfileIgnoresTickets(t *testing.T) {
	t.Parallel()

	s := New(WorkshopsProfile, models.PageContext{}, nil)
	s.SetEvent(models.EventInfo{
		Tickets:  []models.SelectableItem{{Key: "a1"}},
		Products: []models.SelectableItem{{Key: "w1"}},
	})

	found, err := s.SetSelection("a1", models.ChoiceLeader)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, s.Snapshot().Tickets)
}

func TestSubmissionPayload(t *testing.T) {
	t.Parallel()

	t.Run("unset fields render as empty strings", func(t *testing.T) {
		s, _ := newTestStore(t)
		payload := s.SubmissionPayload()

		for _, field := range []string{
			FieldName, FieldEmail, FieldLocation, FieldComment, FieldDanceRole,
			FieldPartnerName, FieldPartnerEmail, FieldPartnerLocation,
			FieldDiscountCode, FieldPartnerToken, FieldRegistrationToken,
		} {
			v, ok := payload[field]
			assert.True(t, ok, "missing field %s", field)
			assert.Equal(t, "", v, "field %s", field)
		}
		assert.Equal(t, "csrf-123", payload[FieldCSRFToken])
		assert.Equal(t, "y", payload[FieldPayAll])
	})

	t.Run("includes registration and selected items", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.UpdateRegistration(models.RegistrationPatch{
			Name:         ptr("Jane Doe"),
			Email:        ptr("jane@example.com"),
			DanceRole:    ptr("leader"),
			PartnerName:  ptr("John Doe"),
			PartnerEmail: ptr("john@example.com"),
			DiscountCode: ptr("GROUP10"),
			PayAll:       ptr(false),
		})
		_, _ = s.SetSelection("b1", models.ChoiceCouple)
		_, _ = s.SetSelection("tshirt", models.ChoiceAdd)

		payload := s.SubmissionPayload()
		assert.Equal(t, "Jane Doe", payload[FieldName])
		assert.Equal(t, "john@example.com", payload[FieldPartnerEmail])
		assert.Equal(t, "GROUP10", payload[FieldDiscountCode])
		assert.Equal(t, "", payload[FieldPayAll])
		assert.Equal(t, "couple", payload["b1-add"])
		assert.Equal(t, "y", payload["tshirt-add"])
		assert.NotContains(t, payload, "a1-add")
	})

	t.Run("derivation is pure", func(t *testing.T) {
		s, _ := newTestStore(t)
		_, _ = s.SetSelection("a1", models.ChoiceFollower)
		before := s.Snapshot()
		first := s.SubmissionPayload()
		second := s.SubmissionPayload()
		assert.Equal(t, first, second)
		assert.Equal(t, before, s.Snapshot())
	})
}

func TestApplyPricingResponse(t *testing.T) {
	t.Parallel()

	t.Run("replaces cart and stages payment setup", func(t *testing.T) {
		s, reloader := newTestStore(t)
		outcome := s.ApplyPricingResponse(pricingResponse())
		assert.Equal(t, Applied, outcome)
		assert.Zero(t, reloader.calls)

		st := s.Snapshot()
		assert.True(t, st.Cart.CheckoutEnabled)
		assert.Equal(t, 50.0, st.Cart.Total)
		assert.Equal(t, 1.7, st.Cart.TransactionFee)
		assert.Equal(t, 51.7, st.Cart.PayNowTotal)
		assert.Len(t, st.Cart.Items, 1)
		assert.Equal(t, models.FieldErrors{"email": {"Invalid email address."}}, st.Errors)
		assert.Equal(t, map[string]float64{"b1": 45}, st.NewPrices)
		require.NotNil(t, st.PaymentSetup)
		assert.Equal(t, int64(5170), st.PaymentSetup.Amount)
	})

	t.Run("is idempotent", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.ApplyPricingResponse(pricingResponse())
		once := s.Snapshot()
		s.ApplyPricingResponse(pricingResponse())
		assert.Equal(t, once, s.Snapshot())
	})

	t.Run("replaces rather than merges", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.ApplyPricingResponse(pricingResponse())
		s.ApplyPricingResponse(&models.PricingResponse{DisableCheckout: true})

		st := s.Snapshot()
		assert.False(t, st.Cart.CheckoutEnabled)
		assert.Empty(t, st.Cart.Items)
		assert.Empty(t, st.Errors)
		assert.Empty(t, st.NewPrices)
		assert.Nil(t, st.PaymentSetup)
		assert.Zero(t, st.Cart.PayNowTotal)
	})

	t.Run("disabled checkout clears payment setup", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.ApplyPricingResponse(pricingResponse())
		resp := pricingResponse()
		resp.DisableCheckout = true
		s.ApplyPricingResponse(resp)

		_, staged := s.PaymentSetup()
		assert.False(t, staged)
	})

	t.Run("csrf error reloads once and mutates nothing", func(t *testing.T) {
		s, reloader := newTestStore(t)
		s.ApplyPricingResponse(pricingResponse())
		before := s.Snapshot()

		resp := pricingResponse()
		resp.Errors = models.FieldErrors{models.CSRFErrorKey: {"The CSRF token has expired."}}
		resp.OrderSummary.TotalPrice = 999

		outcome := s.ApplyPricingResponse(resp)
		assert.Equal(t, Reloaded, outcome)
		assert.Equal(t, 1, reloader.calls)
		assert.Equal(t, []string{"The CSRF token has expired."}, reloader.reasons)
		assert.Equal(t, before, s.Snapshot())
	})

	t.Run("decoded server errors keep every message per field", func(t *testing.T) {
		s, reloader := newTestStore(t)

		var resp models.PricingResponse
		require.NoError(t, json.Unmarshal([]byte(`{
			"order_summary": {"total_price": 0, "items": []},
			"errors": {"Registration": ["Pick a workshop"], "email": ["Required.", "Invalid email address."]},
			"disable_checkout": true
		}`), &resp))

		assert.Equal(t, Applied, s.ApplyPricingResponse(&resp))
		assert.Zero(t, reloader.calls)
		assert.Equal(t, models.FieldErrors{
			"Registration": {"Pick a workshop"},
			"email":        {"Required.", "Invalid email address."},
		}, s.Snapshot().Errors)
	})

	t.Run("decoded csrf error triggers reload", func(t *testing.T) {
		s, reloader := newTestStore(t)

		var resp models.PricingResponse
		require.NoError(t, json.Unmarshal([]byte(`{
			"order_summary": {},
			"errors": {"csrf_token": ["The CSRF token has expired."], "Registration": ["Pick a workshop"]}
		}`), &resp))

		assert.Equal(t, Reloaded, s.ApplyPricingResponse(&resp))
		assert.Equal(t, []string{"The CSRF token has expired."}, reloader.reasons)
	})
}

func TestApplyIfCurrent(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	priceSeq := s.NextSequence()
	checkoutSeq := s.NextSequence()
	require.Greater(t, checkoutSeq, priceSeq)

	checkout := pricingResponse()
	checkout.CheckoutSuccess = true
	assert.Equal(t, Applied, s.ApplyIfCurrent(checkoutSeq, checkout))

	slowPrice := pricingResponse()
	slowPrice.OrderSummary.TotalPrice = 10
	assert.Equal(t, Stale, s.ApplyIfCurrent(priceSeq, slowPrice))

	st := s.Snapshot()
	assert.True(t, st.Cart.CheckoutSuccess)
	assert.Equal(t, 50.0, st.Cart.Total)

	assert.Equal(t, Applied, s.ApplyIfCurrent(checkoutSeq, checkout), "re-applying the same stamp is allowed")
}

func TestApplyPriorRegistrations(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	s.ApplyPriorRegistrations(models.PriorRegistrations{
		Person: &models.PersonInfo{Name: "Jane Doe", Email: "jane@example.com"},
		Registrations: []models.PriorRegistration{
			{TicketKey: "a1", Active: true, DanceRole: "leader"},
			{TicketKey: "b1", Active: false},
		},
	})

	st := s.Snapshot()
	require.NotNil(t, st.PriorRegistrations)
	assert.Equal(t, "Jane Doe", st.PriorRegistrations.Person.Name)
	assert.True(t, st.Tickets[0].Registered)
	assert.False(t, st.Tickets[1].Registered)
	assert.False(t, st.Products[0].Registered)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	s.ApplyPricingResponse(pricingResponse())

	st := s.Snapshot()
	st.Errors["name"] = models.ErrorMessages{"mutated"}
	st.Errors["email"][0] = "mutated"
	st.Cart.Items[0].Price = 0
	st.Tickets[0].Choice = models.ChoiceLeader

	fresh := s.Snapshot()
	assert.NotContains(t, fresh.Errors, "name")
	assert.Equal(t, models.ErrorMessages{"Invalid email address."}, fresh.Errors["email"])
	assert.Equal(t, 50.0, fresh.Cart.Items[0].Price)
	assert.Equal(t, models.ChoiceNone, fresh.Tickets[0].Choice)
}

func TestProfileByName(t *testing.T) {
	p, err := ProfileByName("workshops")
	require.NoError(t, err)
	assert.False(t, p.UseTickets)

	p, err = ProfileByName("")
	require.NoError(t, err)
	assert.Equal(t, RegistrationProfile.Name, p.Name)
	assert.Equal(t, "/price/salty%20breezle", p.Paths.PricePath("salty breezle"))

	_, err = ProfileByName("festival")
	assert.Error(t, err)
}
