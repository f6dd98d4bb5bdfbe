package stories

// fallbackStories is the built-in feed content used when no story file
// exists yet, so a fresh install still renders something.
func fallbackStories() []Story {
	return []Story{
		{
			ID:      1,
			Title:   "AI-Powered Healthcare Diagnosis Gap",
			Preview: "Patients wait weeks for specialist diagnosis while AI could provide instant preliminary analysis...",
			Domain:  "Healthcare",
			Problem: "Patients in rural areas wait 2-6 weeks for specialist diagnosis, leading to delayed treatment and worse outcomes. Current healthcare systems are overwhelmed and specialists are concentrated in urban centers.",
			Pathway: "Companies like Zebra Medical and IDx are building AI diagnostic tools, but they focus on specific conditions and require FDA approval. Most solutions target enterprise hospitals rather than individual practitioners.",
			Solution: "Build an open-source diagnostic assistant that helps general practitioners make faster preliminary assessments. " +
				"Focus on common conditions and provide confidence scores rather than definitive diagnoses.",
		},
		{
			ID:      2,
			Title:   "Carbon Tracking for Small Businesses",
			Preview: "Small businesses want to go green but lack simple tools to measure their carbon footprint...",
			Domain:  "Climate",
			Problem: "Small businesses want to reduce emissions but existing carbon tracking tools are expensive and complex. Most solutions require dedicated sustainability teams that small businesses can't afford.",
			Pathway: "Startups like Watershed and Planetly serve enterprise clients with $50K+ annual contracts, while consumer apps focus on personal tracking. There's a gap in the SMB market.",
			Solution: "Create a simple, affordable carbon tracking tool specifically designed for small businesses with automated data " +
				"collection from common business tools (accounting software, shipping providers, utilities).",
		},
		{
			ID:      3,
			Title:   "Mental Health Support for Remote Workers",
			Preview: "Remote workers report higher isolation and anxiety but lack accessible mental health resources...",
			Domain:  "Mental Health",
			Problem: "Remote workers experience 38% higher rates of anxiety and depression compared to office workers, but traditional therapy is expensive and time-consuming.",
			Pathway: "Apps like BetterHelp and Headspace provide general solutions, while companies like Lyra focus on enterprise mental health benefits. Most ignore the specific challenges of remote work.",
			Solution: "Develop a peer-support platform that connects remote workers with similar challenges, combined with " +
				"AI-driven check-ins and personalized coping strategies.",
		},
	}
}
