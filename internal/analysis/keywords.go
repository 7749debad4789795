package analysis

// technicalKeywords are the skill mentions matched as substrings against
// lowercased transcript text. Order is preserved in extraction output.
var technicalKeywords = []string{
	"python", "javascript", "react", "node.js", "sql", "database",
	"api", "rest", "graphql", "docker", "kubernetes", "aws", "azure",
	"machine learning", "ai", "data science", "analytics", "frontend",
	"backend", "full stack", "devops", "ci/cd", "git", "agile", "scrum",
	"testing", "unit test", "integration test", "microservices",
	"cloud", "serverless", "lambda", "elasticsearch", "redis",
	"mongodb", "postgresql", "mysql", "typescript", "vue", "angular",
}

var softSkillKeywords = []string{
	"leadership", "teamwork", "communication", "problem solving",
	"critical thinking", "adaptability", "time management",
	"project management", "mentoring", "collaboration", "creativity",
	"analytical", "detail oriented", "self motivated", "initiative",
	"flexibility", "patience", "empathy", "negotiation", "presentation",
}

// Emotion label groups used for confidence and stress derivation.
var (
	confidentEmotions = []string{"joy", "optimism", "confidence"}
	uncertainEmotions = []string{"fear", "sadness", "anger", "disgust"}
	stressEmotions    = []string{"fear", "anger", "disgust", "sadness"}
)
