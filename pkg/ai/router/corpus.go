package router

import (
	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/pkg/ai/classify"
)

// categoryCorpus trains the fallback category classifier for requests the
// intent table leaves unmapped (questions, research, unknown intents).
var categoryCorpus = []classify.Example{
	{Label: string(entity.CategoryDeepReasoning), Text: "why did our churn increase after the pricing change"},
	{Label: string(entity.CategoryDeepReasoning), Text: "explain the tradeoffs between consistency and availability"},
	{Label: string(entity.CategoryDeepReasoning), Text: "analyze the root cause of the outage and propose fixes"},
	{Label: string(entity.CategoryDeepReasoning), Text: "compare these three vendors and recommend one with reasoning"},
	{Label: string(entity.CategoryDeepReasoning), Text: "prove that the algorithm terminates"},
	{Label: string(entity.CategoryDeepReasoning), Text: "research the impact of interest rates on startup funding"},
	{Label: string(entity.CategoryCreative), Text: "tell me a story about a dragon who loves tea"},
	{Label: string(entity.CategoryCreative), Text: "come up with a catchy slogan"},
	{Label: string(entity.CategoryCreative), Text: "write lyrics for a birthday song"},
	{Label: string(entity.CategoryCreative), Text: "imagine a world without electricity"},
	{Label: string(entity.CategoryVisual), Text: "what colors go well with navy blue"},
	{Label: string(entity.CategoryVisual), Text: "what does this chart image show"},
	{Label: string(entity.CategoryVisual), Text: "layout ideas for a photo gallery page"},
	{Label: string(entity.CategoryVisual), Text: "describe the picture attached"},
	{Label: string(entity.CategoryQuick), Text: "what time is it in tokyo"},
	{Label: string(entity.CategoryQuick), Text: "convert 10 miles to kilometers"},
	{Label: string(entity.CategoryQuick), Text: "what is the capital of canada"},
	{Label: string(entity.CategoryQuick), Text: "how many days until friday"},
	{Label: string(entity.CategoryQuick), Text: "spell necessary"},
	{Label: string(entity.CategoryDefault), Text: "tell me about yourself"},
	{Label: string(entity.CategoryDefault), Text: "how are things going"},
	{Label: string(entity.CategoryDefault), Text: "thanks that helps"},
	{Label: string(entity.CategoryDefault), Text: "sounds good let's continue"},
}

func NewCategoryClassifier() *classify.NaiveBayes {
	return classify.Train(categoryCorpus)
}
