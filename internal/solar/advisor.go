// Package solar answers rooftop solar questions for homeowners around
// Rawalpindi: system sizing, cost, installers, net metering and FAQs.
package solar

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	dialogflow "google.golang.org/api/dialogflow/v2"

	"github.com/initify/solarhook/internal/fulfillment"
)

// Intent display names handled by the Advisor.
const (
	IntentSystemSize  = "Get_System_Size"
	IntentCheckCost   = "Check_Cost"
	IntentInstaller   = "Find_Installer"
	IntentNetMetering = "Learn_Net_Metering"
	IntentFAQ         = "Solar_FAQ"
)

const netMeteringText = "⚡ Net Metering in Pakistan:\n" +
	"Sell excess solar to the grid and get credits.\n" +
	"Process: Panels produce electricity → excess sent to grid → credits offset your bill.\n" +
	"Rawalpindi application:\n" +
	"1) Contact IESCO 051-111-000-000\n" +
	"2) Submit CNIC, ownership proof, electricity bill, system details\n" +
	"3) Install bi-directional meter PKR 25k–40k\n" +
	"4) NEPRA approval, start earning credits\n" +
	"Financial benefits: 19–22 PKR/unit, reduce bills 70–100%, ROI 20–25% annually."

const installerTips = "💡 Recommendations:\n" +
	"• Get quotes from at least 3 companies\n" +
	"• Verify warranty terms (minimum 10 years on panels)\n" +
	"• Check if they handle net metering paperwork\n" +
	"• Ask about after-sales service response time\n\n" +
	"📞 Need help choosing? Call 051-111-000-111"

const faqTopics = "maintenance, warranty, battery, panels, inverter, installation, cost, or savings"

// Advisor implements the solar intents on top of a Catalog and per-session
// memory.
type Advisor struct {
	catalog  *Catalog
	sessions *SessionStore
}

func NewAdvisor(catalog *Catalog, sessions *SessionStore) *Advisor {
	return &Advisor{
		catalog:  catalog,
		sessions: sessions,
	}
}

// Register sets an action for every solar intent.
func (a *Advisor) Register(actions fulfillment.Actions) {
	actions.Set(IntentSystemSize, a.systemSize)
	actions.Set(IntentCheckCost, a.checkCost)
	actions.Set(IntentInstaller, a.findInstaller)
	actions.Set(IntentNetMetering, a.netMetering)
	actions.Set(IntentFAQ, a.faq)
}

func (a *Advisor) systemSize(_ context.Context, q *fulfillment.Query) (*dialogflow.GoogleCloudDialogflowV2WebhookResponse, error) {
	s := a.sessions.Update(q.Session, func(s *Session) {
		if usage, ok := q.Params.Quantity("energy_usage"); ok && isEnergyUnit(usage.Unit) && usage.Amount > 0 {
			s.Units = usage.Amount
		}
		if area, ok := q.Params.Quantity("roof_area"); ok && area.Amount > 0 {
			s.AreaM2 = AreaToM2(area.Amount, area.Unit)
			s.AreaDisplay = strings.TrimSpace(formatNumber(area.Amount) + " " + area.Unit)
		}
		if bill, ok := q.Params.Number("monthly_bill"); ok && bill > 0 {
			s.Bill = bill
		}
		if size := EstimateSizeKW(*s); size > 0 {
			s.SizeKW = size
		}
	})

	if s.SizeKW <= 0 {
		var missing []string
		if s.Bill <= 0 && s.Units <= 0 {
			missing = append(missing, "monthly electricity consumption (in units) or monthly bill amount (in PKR)")
		}
		if s.AreaM2 <= 0 {
			missing = append(missing, "roof area in sq ft or marla")
		}
		return fulfillment.Text(fmt.Sprintf(
			"I need more information to calculate system size. Please provide %s.",
			strings.Join(missing, ", "))), nil
	}

	text := fmt.Sprintf("Estimated system size: ~%s kW for Rawalpindi ☀️", formatNumber(s.SizeKW))

	var used []string
	if s.Units > 0 {
		used = append(used, formatNumber(s.Units)+" units/month")
	}
	if s.Bill > 0 {
		used = append(used, "bill of PKR "+formatPKR(s.Bill))
	}
	if s.AreaDisplay != "" {
		used = append(used, "roof area of "+s.AreaDisplay)
	}
	if len(used) > 0 {
		text += fmt.Sprintf("\n(Based on %s)", strings.Join(used, ", "))
	}
	return fulfillment.Text(text), nil
}

func isEnergyUnit(unit string) bool {
	switch strings.ToLower(unit) {
	case "", "units", "kwh":
		return true
	}
	return false
}

func (a *Advisor) checkCost(_ context.Context, q *fulfillment.Query) (*dialogflow.GoogleCloudDialogflowV2WebhookResponse, error) {
	size, ok := q.Params.Number("size_kw")
	if !ok || size <= 0 {
		s := a.sessions.Get(q.Session)
		size = s.SizeKW
		if size <= 0 {
			size = EstimateSizeKW(s)
		}
	}
	if size <= 0 {
		return fulfillment.Text("Please provide monthly bill/units or rooftop area to estimate cost."), nil
	}

	return fulfillment.Text(fmt.Sprintf("Estimated turnkey cost for %s kW: ~PKR %s",
		formatNumber(size), formatPKR(EstimateCostPKR(size)))), nil
}

func (a *Advisor) findInstaller(_ context.Context, q *fulfillment.Query) (*dialogflow.GoogleCloudDialogflowV2WebhookResponse, error) {
	location := q.Params.String("location")
	if location == "" {
		return fulfillment.Text("I can help you find solar installers in your area! Please specify your location (e.g., Rawalpindi, Islamabad, Bahria Town)."), nil
	}

	installers := a.catalog.InstallersFor(location)
	if len(installers) == 0 {
		return fulfillment.Text("Installer data not found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔧 Top Solar Installers in %s:\n\n", cases.Title(language.English).String(location))
	for i, in := range installers {
		fmt.Fprintf(&b, "%d. %s\n", i+1, in.Name)
		fmt.Fprintf(&b, "   📞 %s\n", in.Contact)
		fmt.Fprintf(&b, "   ⭐ Rating: %s\n", in.Rating)
		fmt.Fprintf(&b, "   🏠 %s\n\n", in.Address)
	}
	b.WriteString(installerTips)
	return fulfillment.Text(b.String()), nil
}

func (a *Advisor) netMetering(context.Context, *fulfillment.Query) (*dialogflow.GoogleCloudDialogflowV2WebhookResponse, error) {
	return fulfillment.Text(netMeteringText), nil
}

func (a *Advisor) faq(_ context.Context, q *fulfillment.Query) (*dialogflow.GoogleCloudDialogflowV2WebhookResponse, error) {
	topic := q.Params.String("faq_topic")
	if topic == "" {
		return fulfillment.Text("I can help with " + faqTopics + ". What topic would you like to know about?"), nil
	}

	f, ok := a.catalog.FindFAQ(topic)
	if !ok {
		return fulfillment.Text(fmt.Sprintf(
			"I don't have information about '%s' in my FAQ database. I can help with %s.", topic, faqTopics)), nil
	}
	return fulfillment.Text(fmt.Sprintf("💡 %s: %s", f.Question, f.Answer)), nil
}
