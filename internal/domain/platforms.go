package domain

// DefaultPlatforms возвращает упорядоченный список целевых платформ.
// Порядок фиксирован: события прогресса и итоговый список черновиков
// следуют ему в точности.
func DefaultPlatforms() []PlatformSpec {
	return []PlatformSpec{
		{ID: "linkedin", Prompt: "LinkedIn Ghostwriter. Use PAS framework. Professional hook. No markdown."},
		{ID: "twitter", Prompt: "Viral X thread writer. 5-7 punchy posts."},
		{ID: "instagram", Prompt: "Instagram Strategist. Caption and Story script."},
		{ID: "tiktok", Prompt: "TikTok scriptwriter. 40-second viral script."},
		{ID: "newsletter", Prompt: "Newsletter Editor. Subject line + executive summary."},
		{ID: "blog", Prompt: "SEO tech blogger. 400-word draft."},
		{ID: "threads", Prompt: "Conversational Threads influencer."},
		{ID: "facebook", Prompt: "Community Manager. Story-driven post."},
		{ID: "pinterest", Prompt: "Pinterest SEO. Title and Description."},
		{ID: "youtube", Prompt: "YouTube Manager. Community tab update."},
		{ID: "medium", Prompt: "Thought Leadership Writer. Narrative summary."},
		{ID: "reddit", Prompt: "Expert Redditor. Subreddit-ready formatting."},
	}
}
