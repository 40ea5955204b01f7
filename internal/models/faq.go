package models

// FAQEntry is a single question and answer.
type FAQEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// FAQSection groups entries under a topic.
type FAQSection struct {
	Topic   string     `json:"topic"`
	Entries []FAQEntry `json:"entries"`
}

// FAQ is the static catalogue shown before parents file a complaint.
var FAQ = []FAQSection{
	{
		Topic: "School meals",
		Entries: []FAQEntry{
			{"Where can I find the meal menu?", "The weekly menu is published under the meal information page of the school portal."},
			{"What should I do if my child has an allergy?", "Contact the health office (031-123-4567) or let the homeroom teacher know in advance."},
		},
	},
	{
		Topic: "Academic calendar",
		Entries: []FAQEntry{
			{"When are the 2025 school holidays?", "Summer: July 28 to August 20.\nWinter: January 6 to February 28, 2026."},
			{"When is the parent consultation week?", "The second week of April. Individual meetings are arranged with the homeroom teacher in advance."},
			{"How do I apply for a field-trip absence?", "Submit the application to the homeroom teacher at least 3 days ahead. Up to 16 days per year are allowed."},
		},
	},
	{
		Topic: "Facilities",
		Entries: []FAQEntry{
			{"When is the library open?", "Weekdays 9:00 to 16:00. Closed on weekends and public holidays."},
			{"When is the playground open?", "Weekdays 18:00 to 20:00, weekends 9:00 to 18:00. Access may be limited on event days."},
		},
	},
	{
		Topic: "Health and safety",
		Entries: []FAQEntry{
			{"What happens if my child feels sick at school?", "The health office gives first aid and contacts you. In an emergency we call 119 first and then contact you."},
			{"Are there rules for visiting the school?", "Wear a visitor badge, bring ID and sign the entry log. Unauthorised entry is not allowed."},
			{"What should I do in case of an infectious disease?", "Contact the homeroom teacher and the health office right away. Attendance is suspended until recovery and recognised after a medical certificate is submitted."},
		},
	},
}
