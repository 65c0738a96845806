package analyzer

import (
	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/pkg/ai/classify"
)

// seedCorpus trains the fallback intent classifier. It covers paraphrases the
// rule table misses plus the question/research intents no rule owns.
var seedCorpus = []classify.Example{
	{Label: string(entity.IntentCreateTask), Text: "I need to remember to send the invoice"},
	{Label: string(entity.IntentCreateTask), Text: "put pay rent on my list"},
	{Label: string(entity.IntentCreateTask), Text: "jot down that I have to call the vendor"},
	{Label: string(entity.IntentCreateTask), Text: "don't let me forget the quarterly report"},
	{Label: string(entity.IntentListTasks), Text: "what do I have on my plate today"},
	{Label: string(entity.IntentListTasks), Text: "anything left open for this week"},
	{Label: string(entity.IntentListTasks), Text: "show my agenda and outstanding work"},
	{Label: string(entity.IntentCompleteTask), Text: "I already sent the invoice, cross it off"},
	{Label: string(entity.IntentCompleteTask), Text: "that one is finished now"},
	{Label: string(entity.IntentCreateGoal), Text: "I want to run a marathon by next year"},
	{Label: string(entity.IntentCreateGoal), Text: "my aim is to grow revenue twenty percent this quarter"},
	{Label: string(entity.IntentCreateProject), Text: "we are launching a new mobile app initiative"},
	{Label: string(entity.IntentCreateProject), Text: "organize the website migration workstream"},
	{Label: string(entity.IntentScheduleMeeting), Text: "find a time with the design team next week"},
	{Label: string(entity.IntentScheduleMeeting), Text: "get everyone together on thursday afternoon"},
	{Label: string(entity.IntentSummarize), Text: "give me the gist of this thread"},
	{Label: string(entity.IntentSummarize), Text: "condense these notes into key points"},
	{Label: string(entity.IntentSummarize), Text: "what were the main takeaways from the document"},
	{Label: string(entity.IntentDesignVisual), Text: "make a poster for the product launch"},
	{Label: string(entity.IntentDesignVisual), Text: "create a color palette and layout for the landing page"},
	{Label: string(entity.IntentAnalyzeImage), Text: "look at this photo and tell me what you see"},
	{Label: string(entity.IntentAnalyzeImage), Text: "read the text in this screenshot"},
	{Label: string(entity.IntentDebug), Text: "my build keeps failing with a nil pointer"},
	{Label: string(entity.IntentDebug), Text: "why does this function return the wrong value"},
	{Label: string(entity.IntentDebug), Text: "the deployment is broken and requests time out"},
	{Label: string(entity.IntentPlanStrategy), Text: "how should we prioritize the features for next quarter"},
	{Label: string(entity.IntentPlanStrategy), Text: "compare the pros and cons of moving to microservices"},
	{Label: string(entity.IntentPlanStrategy), Text: "think through the risks of expanding into europe"},
	{Label: string(entity.IntentPlanStrategy), Text: "reason step by step about the pricing model"},
	{Label: string(entity.IntentBrainstorm), Text: "give me names for the new product"},
	{Label: string(entity.IntentBrainstorm), Text: "suggest creative themes for the offsite"},
	{Label: string(entity.IntentWriteContent), Text: "help me word a message announcing the release"},
	{Label: string(entity.IntentWriteContent), Text: "rewrite this paragraph to sound more friendly"},
	{Label: string(entity.IntentWriteContent), Text: "polish the copy for the pricing page"},
	{Label: string(entity.IntentQuestion), Text: "what is the difference between a goal and a project"},
	{Label: string(entity.IntentQuestion), Text: "how does the billing cycle work"},
	{Label: string(entity.IntentQuestion), Text: "who owns the onboarding flow"},
	{Label: string(entity.IntentQuestion), Text: "when is the next release"},
	{Label: string(entity.IntentQuestion), Text: "why is the sky blue"},
	{Label: string(entity.IntentResearch), Text: "find sources on remote work productivity"},
	{Label: string(entity.IntentResearch), Text: "investigate competitors pricing in the market"},
	{Label: string(entity.IntentResearch), Text: "gather recent studies about sleep and memory"},
	{Label: string(entity.IntentResearch), Text: "search the latest news about interest rates"},
	{Label: string(entity.IntentGreeting), Text: "hey how are you doing today"},
	{Label: string(entity.IntentGreeting), Text: "thanks so much, have a nice day"},
}

func NewIntentClassifier() *classify.NaiveBayes {
	return classify.Train(seedCorpus)
}
