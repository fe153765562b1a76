// Package fallback provides the local responder used when the realtime
// channel is unavailable. Replies are canned per inquiry category and
// picked with an injectable random source, so the responder works fully
// offline and stays deterministic under test.
package fallback

import (
	"math/rand"
	"strings"
	"time"
)

// Category classifies a visitor inquiry.
type Category string

const (
	CategoryGreeting     Category = "greeting"
	CategoryThanks       Category = "thanks"
	CategoryOffline      Category = "offline"
	CategoryCompany      Category = "company-info"
	CategoryServices     Category = "services"
	CategoryPricing      Category = "pricing"
	CategoryLocations    Category = "locations"
	CategoryProcess      Category = "process"
	CategoryTechnologies Category = "technologies"
	CategoryPortfolio    Category = "portfolio"
	CategoryGeneral      Category = "general"
)

// Inquiry keywords by category. Matching is case-insensitive substring,
// same as the widget's keyword matcher.
var (
	// Single-word greetings match whole words only, so "hi" does not
	// fire inside "which" or "this".
	greetingWords   = []string{"hello", "hi", "hey", "greetings", "hiya", "howdy"}
	greetingPhrases = []string{"good morning", "good afternoon", "good evening"}
	thanksKeywords   = []string{"thank", "thanks", "appreciate", "grateful", "bye"}
	offlineKeywords  = []string{"offline", "connection", "online", "available"}

	companyTopics      = []string{"about", "company", "who are you", "mission", "vision", "values", "history", "founded"}
	servicesTopics     = []string{"services", "offerings", "solutions", "provide", "offer", "development", "marketing", "seo", "ads", "promotion"}
	pricingTopics      = []string{"price", "pricing", "cost", "rates", "fee", "package", "how much"}
	locationsTopics    = []string{"location", "office", "headquarters", "address", "where", "based", "branches"}
	processTopics      = []string{"process", "approach", "methodology", "how do you", "steps", "workflow"}
	technologiesTopics = []string{"technology", "technologies", "tech stack", "tools", "platforms", "software"}
	portfolioTopics    = []string{"portfolio", "projects", "clients", "case studies", "examples", "past work"}

	agentRequestPhrases = []string{
		"speak to agent", "talk to agent", "connect to agent",
		"speak to human", "talk to human", "connect to human",
		"speak to an agent", "talk to an agent",
		"connect me to an agent", "connect me to a human",
	}
)

var responses = map[Category][]string{
	CategoryGreeting: {
		"Hello! Welcome to Go Digital Africa. How can I help you today?",
		"Hi there! I'm the Go Digital Africa assistant. What can I do for you?",
		"Hey! Great to see you. What would you like to know about Go Digital Africa?",
	},
	CategoryThanks: {
		"You're welcome! Is there anything else I can help you with?",
		"Happy to help! Feel free to ask if anything else comes up.",
		"Anytime! Don't hesitate to reach out again.",
	},
	CategoryOffline: {
		"I'm currently running in offline mode, so some features are limited. I can still answer questions about Go Digital Africa's services, pricing, and locations.",
		"We're operating offline right now. Live agent chat is unavailable, but I can help with general questions about our services.",
	},
	CategoryCompany: {
		"Go Digital Africa is a full-service digital marketing agency helping businesses across Africa grow their online presence through web development, mobile apps, and digital marketing.",
		"We're Go Digital Africa, a digital agency focused on helping African businesses succeed online. Our mission is to make world-class digital services accessible across the continent.",
	},
	CategoryServices: {
		"Go Digital Africa offers a comprehensive range of digital services including web and mobile development, digital marketing (SEO, social media, content), e-commerce solutions, and IT consulting. Which service would you like to know more about?",
		"Our services cover web development, mobile app development, SEO, social media marketing, content marketing, e-commerce, and IT consulting. Is there a specific area you're interested in?",
	},
	CategoryPricing: {
		"Our pricing varies based on your specific requirements and project scope. Web projects typically start from a basic package, with custom quotes for larger builds. Would you like to request a detailed quote?",
		"We offer flexible packages for every budget. Pricing depends on the service and project scope, so the best next step is a free consultation for a tailored quote.",
	},
	CategoryLocations: {
		"Our headquarters is in Nairobi, Kenya, and we serve clients across Africa and beyond. We also work with distributed teams, so remote collaboration is no problem.",
		"We're based in Nairobi with a presence in several African markets. Wherever you are, we can work with you remotely.",
	},
	CategoryProcess: {
		"We follow a structured process: discovery and requirements, proposal and timeline, iterative design and development with regular check-ins, then launch and ongoing support.",
		"Every project starts with a discovery call to understand your goals. From there we agree on scope and milestones, deliver iteratively, and stay on for support after launch.",
	},
	CategoryTechnologies: {
		"We build with modern web technologies like React and Node.js, native and cross-platform mobile stacks, and data-driven marketing platforms like Google Ads and Meta Business Suite.",
		"Our stack spans modern JavaScript frameworks for the web, Flutter and native tooling for mobile, and the major analytics and advertising platforms for marketing work.",
	},
	CategoryPortfolio: {
		"We've delivered projects across e-commerce, fintech, hospitality, and more. Case studies are available on our website, or ask and I can summarize relevant work.",
		"Our portfolio includes corporate websites, online stores, mobile apps, and long-running marketing campaigns for clients across various industries.",
	},
	CategoryGeneral: {
		"I'm not sure I caught that. I can tell you about Go Digital Africa's services, pricing, locations, process, or past work. What would you like to know?",
		"Could you rephrase that? I can help with questions about our services, pricing, technologies, or how to get in touch with the team.",
	},
}

// agentOfflineReply is used when a visitor asks for a human while the
// channel is down and no agent can be reached.
const agentOfflineReply = "I'd normally connect you to a support agent, but live chat is unavailable right now. Please try again later, or leave your question here and I'll do my best to help."

// Responder picks canned replies for visitor inquiries.
type Responder struct {
	rng *rand.Rand
}

// New creates a time-seeded responder.
func New() *Responder {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded creates a responder with a fixed seed, for deterministic
// replies in tests.
func NewSeeded(seed int64) *Responder {
	return &Responder{rng: rand.New(rand.NewSource(seed))}
}

// Reply returns a canned response for the inquiry. Agent requests get
// the channel-down handoff reply; everything else is answered by
// category.
func (r *Responder) Reply(input string) string {
	if IsAgentRequest(input) {
		return agentOfflineReply
	}
	pool := responses[Categorize(input)]
	return pool[r.rng.Intn(len(pool))]
}

// Categorize classifies an inquiry. The order mirrors the widget:
// conversational intents first, then topical ones, with CategoryGeneral
// as the catch-all.
func Categorize(input string) Category {
	msg := strings.ToLower(input)

	switch {
	case containsAnyKeyword(msg, greetingPhrases) || containsAnyWord(msg, greetingWords):
		return CategoryGreeting
	case containsAnyKeyword(msg, thanksKeywords):
		return CategoryThanks
	case containsAnyKeyword(msg, offlineKeywords):
		return CategoryOffline
	case matchesTopic(msg, companyTopics):
		return CategoryCompany
	case matchesTopic(msg, servicesTopics):
		return CategoryServices
	case matchesTopic(msg, pricingTopics):
		return CategoryPricing
	case matchesTopic(msg, locationsTopics):
		return CategoryLocations
	case matchesTopic(msg, processTopics):
		return CategoryProcess
	case matchesTopic(msg, technologiesTopics):
		return CategoryTechnologies
	case matchesTopic(msg, portfolioTopics):
		return CategoryPortfolio
	default:
		return CategoryGeneral
	}
}

// IsAgentRequest reports whether the visitor is asking for a human.
func IsAgentRequest(input string) bool {
	return containsAnyKeyword(strings.ToLower(input), agentRequestPhrases)
}

// matchesTopic checks for direct topic mentions plus common question
// forms about the topic.
func matchesTopic(msg string, topics []string) bool {
	if containsAnyKeyword(msg, topics) {
		return true
	}
	for _, topic := range topics {
		if strings.Contains(msg, "what is your "+topic) ||
			strings.Contains(msg, "tell me about your "+topic) ||
			strings.Contains(msg, "information about "+topic) ||
			strings.Contains(msg, topic+"?") {
			return true
		}
	}
	return false
}

func containsAnyWord(text string, words []string) bool {
	for _, field := range strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		for _, w := range words {
			if field == w {
				return true
			}
		}
	}
	return false
}

func containsAnyKeyword(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
