package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/sahilchouksey/coursehub-api/database"
	"github.com/sahilchouksey/coursehub-api/model"
	"github.com/sahilchouksey/coursehub-api/services/inference"
	"github.com/sahilchouksey/coursehub-api/utils"
	"github.com/sahilchouksey/coursehub-api/utils/apperr"
	"github.com/sahilchouksey/coursehub-api/utils/auth"
	"github.com/sahilchouksey/coursehub-api/utils/cache"
)

const (
	// MaxResumePDFSize bounds resume uploads
	MaxResumePDFSize = 5 << 20
	maxResumeChars   = 20000
	minResumeChars   = 50
	wordsPerMinute   = 200
	maxRecommended   = 5
	quizPassingScore = 70

	// SummaryCacheTTL is how long identical summarize requests reuse a reply
	SummaryCacheTTL = time.Hour
)

// AIService maps requests onto language model prompts and replies onto
// response schemas. Replies are never trusted to be well formed.
type AIService struct {
	llm     inference.LLM
	courses *CourseService
	pdf     *PDFExtractor
	cache   *cache.RedisCache
	logger  *slog.Logger
}

// NewAIService creates a new AI feature service
func NewAIService(llm inference.LLM, courses *CourseService, pdf *PDFExtractor, logger *slog.Logger) *AIService {
	return &AIService{llm: llm, courses: courses, pdf: pdf, logger: logger}
}

// WithCache enables reply caching for summaries. A nil cache disables it.
func (s *AIService) WithCache(c *cache.RedisCache) *AIService {
	s.cache = c
	return s
}

// ChatTurn is one earlier exchange in a tutoring session
type ChatTurn struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required,max=4000"`
}

// TutorRequest asks the tutor a question
type TutorRequest struct {
	Question string     `json:"question" validate:"required,min=3,max=2000"`
	CourseID string     `json:"courseId" validate:"omitempty,max=100"`
	History  []ChatTurn `json:"history" validate:"max=20,dive"`
}

// TutorResponse is the tutor's answer
type TutorResponse struct {
	Answer         string   `json:"answer"`
	Suggestions    []string `json:"suggestions"`
	RelatedModules []string `json:"relatedModules"`
}

// ResumeRequest is a plain-text resume analysis request
type ResumeRequest struct {
	ResumeText string `json:"resumeText" validate:"required,min=50,max=20000"`
	TargetRole string `json:"targetRole" validate:"omitempty,max=200"`
}

// CourseSummary is a compact course reference
type CourseSummary struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Category string      `json:"category"`
	Level    model.Level `json:"level"`
	Price    int64       `json:"price"`
	Currency string      `json:"currency"`
}

// ResumeAnalysis is the structured resume review
type ResumeAnalysis struct {
	Score              int             `json:"score"`
	Summary            string          `json:"summary"`
	Strengths          []string        `json:"strengths"`
	Weaknesses         []string        `json:"weaknesses"`
	Suggestions        []string        `json:"suggestions"`
	Keywords           []string        `json:"keywords"`
	RecommendedCourses []CourseSummary `json:"recommendedCourses"`
}

type resumeReply struct {
	Score       float64  `json:"score"`
	Summary     string   `json:"summary"`
	Strengths   []string `json:"strengths"`
	Weaknesses  []string `json:"weaknesses"`
	Suggestions []string `json:"suggestions"`
	Keywords    []string `json:"keywords"`
}

// SummarizeRequest asks for a summary of arbitrary content
type SummarizeRequest struct {
	Content  string `json:"content" validate:"required,min=50,max=50000"`
	MaxWords int    `json:"maxWords" validate:"omitempty,min=20,max=1000"`
	Style    string `json:"style" validate:"omitempty,oneof=brief detailed bullets"`
}

// SummaryResponse is the produced summary with derived counters
type SummaryResponse struct {
	Summary            string   `json:"summary"`
	KeyPoints          []string `json:"keyPoints"`
	WordCount          int      `json:"wordCount"`
	ReadingTimeMinutes int      `json:"readingTimeMinutes"`
	Style              string   `json:"style"`
}

// QuizRequest generates a quiz from content or from a course module
type QuizRequest struct {
	Content      string `json:"content" validate:"omitempty,min=50,max=50000"`
	CourseID     string `json:"courseId" validate:"omitempty,max=100"`
	ModuleID     string `json:"moduleId" validate:"omitempty,max=100"`
	NumQuestions int    `json:"numQuestions" validate:"omitempty,min=1,max=20"`
	Difficulty   string `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

func (s *AIService) complete(ctx context.Context, feature string, messages []inference.Message, opts ...inference.Option) (string, error) {
	reply, err := s.llm.Complete(ctx, messages, opts...)
	if err != nil {
		s.logger.Error("language model call failed", "feature", feature, "error", err)
		return "", apperr.ErrAIServiceUnavailable.Wrap(err)
	}
	return reply, nil
}

// Tutor answers a question, with course context when the course is visible
// to the caller
func (s *AIService) Tutor(ctx context.Context, id *auth.Identity, req TutorRequest) (*TutorResponse, error) {
	var course *model.Course
	if req.CourseID != "" {
		if c, err := s.courses.Get(ctx, id, req.CourseID); err == nil {
			course = &c
		}
	}

	system := "You are a patient course tutor. Answer the student's question clearly. " +
		`Reply with JSON: {"answer": string, "suggestions": [string], "relatedModules": [string]}.`
	if course != nil {
		system += "\n\nCourse: " + course.Title + "\nModules:\n" + moduleOutline(course)
	}

	messages := []inference.Message{{Role: "system", Content: system}}
	for _, turn := range req.History {
		messages = append(messages, inference.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, inference.Message{Role: "user", Content: req.Question})

	reply, err := s.complete(ctx, "tutor", messages, inference.WithTemperature(0.4))
	if err != nil {
		return nil, err
	}

	resp := &TutorResponse{}
	if err := utils.ExtractJSONTo(reply, resp); err != nil || strings.TrimSpace(resp.Answer) == "" {
		resp = &TutorResponse{Answer: strings.TrimSpace(reply)}
	}
	if course != nil {
		resp.RelatedModules = relatedModules(course, resp.RelatedModules, req.Question)
	}
	resp.Suggestions = nonEmpty(resp.Suggestions)
	resp.RelatedModules = nonEmpty(resp.RelatedModules)
	return resp, nil
}

// AnalyzeResume reviews resume text
func (s *AIService) AnalyzeResume(ctx context.Context, req ResumeRequest) (*ResumeAnalysis, error) {
	text := strings.TrimSpace(req.ResumeText)
	if len(text) < minResumeChars {
		return nil, apperr.Validation(fmt.Sprintf("Resume must contain at least %d characters", minResumeChars))
	}
	if len(text) > maxResumeChars {
		text = text[:maxResumeChars]
	}

	prompt := "Analyze the resume below"
	if req.TargetRole != "" {
		prompt += " for the role of " + req.TargetRole
	}
	prompt += ".\n\nRESUME:\n" + text

	reply, err := s.complete(ctx, "resume", []inference.Message{
		{Role: "system", Content: "You are a career coach reviewing resumes. " +
			`Reply with JSON: {"score": 0-100, "summary": string, "strengths": [string], "weaknesses": [string], "suggestions": [string], "keywords": [string]}.`},
		{Role: "user", Content: prompt},
	}, inference.WithTemperature(0.2), inference.WithJSONResponse())
	if err != nil {
		return nil, err
	}

	var parsed resumeReply
	if err := utils.ExtractJSONTo(reply, &parsed); err != nil {
		parsed = resumeReply{Summary: strings.TrimSpace(reply)}
	}
	analysis := &ResumeAnalysis{
		Score:       clamp(int(math.Round(parsed.Score)), 0, 100),
		Summary:     strings.TrimSpace(parsed.Summary),
		Strengths:   parsed.Strengths,
		Weaknesses:  parsed.Weaknesses,
		Suggestions: parsed.Suggestions,
		Keywords:    parsed.Keywords,
	}
	analysis.Strengths = nonEmpty(analysis.Strengths)
	analysis.Weaknesses = nonEmpty(analysis.Weaknesses)
	analysis.Suggestions = nonEmpty(analysis.Suggestions)
	analysis.Keywords = nonEmpty(analysis.Keywords)
	if len(analysis.Keywords) == 0 {
		analysis.Keywords = topTerms(text, 10)
	}

	recommended, err := s.recommend(ctx, analysis.Keywords)
	if err != nil {
		return nil, err
	}
	analysis.RecommendedCourses = recommended
	return analysis, nil
}

// AnalyzeResumePDF extracts the text of an uploaded PDF and reviews it
func (s *AIService) AnalyzeResumePDF(ctx context.Context, content []byte, targetRole string) (*ResumeAnalysis, error) {
	if len(content) > MaxResumePDFSize {
		return nil, apperr.Validation(fmt.Sprintf("Resume file exceeds the %d MB limit", MaxResumePDFSize>>20))
	}
	text, err := s.pdf.ExtractText(content)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotPDF):
			return nil, apperr.Validation("Resume file must be a PDF")
		case errors.Is(err, ErrInsufficientPDF):
			return nil, apperr.Validation("Could not extract enough text from the PDF")
		}
		return nil, apperr.Validation("Could not read the PDF").Wrap(err)
	}
	return s.AnalyzeResume(ctx, ResumeRequest{ResumeText: text, TargetRole: targetRole})
}

// recommend returns published courses whose title, tags or category match any keyword
func (s *AIService) recommend(ctx context.Context, keywords []string) ([]CourseSummary, error) {
	out := []CourseSummary{}
	if len(keywords) == 0 {
		return out, nil
	}
	courses, err := s.courses.store.Courses().FindBy(ctx, database.CourseFilter{})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	for _, c := range courses {
		if len(out) == maxRecommended {
			break
		}
		if matchesAny(&c, keywords) {
			out = append(out, CourseSummary{
				ID:       c.ID,
				Title:    c.Title,
				Category: c.Category,
				Level:    c.Level,
				Price:    c.Price,
				Currency: c.Currency,
			})
		}
	}
	return out, nil
}

// Summarize condenses content
func (s *AIService) Summarize(ctx context.Context, req SummarizeRequest) (*SummaryResponse, error) {
	maxWords := req.MaxWords
	if maxWords == 0 {
		maxWords = 150
	}
	style := req.Style
	if style == "" {
		style = "brief"
	}

	var instruction string
	switch style {
	case "bullets":
		instruction = "as a bulleted list"
	case "detailed":
		instruction = "in detailed prose"
	default:
		instruction = "briefly"
	}

	key := summaryCacheKey(style, maxWords, req.Content)
	if s.cache != nil {
		var cached SummaryResponse
		if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, cache.ErrNotFound) {
			s.logger.Warn("summary cache read failed", "error", err)
		}
	}

	reply, err := s.complete(ctx, "summarize", []inference.Message{
		{Role: "system", Content: "You summarize educational content. " +
			`Reply with JSON: {"summary": string, "keyPoints": [string]}.`},
		{Role: "user", Content: fmt.Sprintf("Summarize the following %s in at most %d words.\n\n%s", instruction, maxWords, req.Content)},
	}, inference.WithTemperature(0.3))
	if err != nil {
		return nil, err
	}

	resp := &SummaryResponse{}
	if err := utils.ExtractJSONTo(reply, resp); err != nil || strings.TrimSpace(resp.Summary) == "" {
		resp = &SummaryResponse{Summary: strings.TrimSpace(reply)}
		if style == "bullets" {
			resp.KeyPoints = bulletLines(resp.Summary)
		}
	}
	resp.KeyPoints = nonEmpty(resp.KeyPoints)
	resp.Style = style
	resp.WordCount = countWords(resp.Summary)
	resp.ReadingTimeMinutes = readingTime(req.Content)

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, resp, SummaryCacheTTL); err != nil {
			s.logger.Warn("summary cache write failed", "error", err)
		}
	}
	return resp, nil
}

func summaryCacheKey(style string, maxWords int, content string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", style, maxWords, content)))
	return "ai:summary:" + hex.EncodeToString(sum[:])
}

type generatedQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

type generatedQuiz struct {
	Title     string              `json:"title"`
	Questions []generatedQuestion `json:"questions"`
}

// GenerateQuiz builds a multiple-choice quiz. Malformed questions are dropped.
func (s *AIService) GenerateQuiz(ctx context.Context, id *auth.Identity, req QuizRequest) (*model.Quiz, error) {
	content, title, err := s.quizSource(ctx, id, req)
	if err != nil {
		return nil, err
	}
	num := req.NumQuestions
	if num == 0 {
		num = 5
	}
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = "medium"
	}

	reply, err := s.complete(ctx, "quiz", []inference.Message{
		{Role: "system", Content: "You write multiple-choice quizzes for online courses. " +
			`Reply with JSON: {"title": string, "questions": [{"question": string, "options": [string], "correctAnswer": index, "explanation": string}]}.`},
		{Role: "user", Content: fmt.Sprintf("Write %d %s questions about the following material.\n\n%s", num, difficulty, content)},
	}, inference.WithTemperature(0.5), inference.WithJSONResponse())
	if err != nil {
		return nil, err
	}

	var generated generatedQuiz
	if err := utils.ExtractJSONTo(reply, &generated); err != nil {
		var list []generatedQuestion
		if err := utils.ExtractJSONTo(reply, &list); err != nil {
			s.logger.Warn("quiz reply was not JSON", "length", len(reply))
			return nil, apperr.ErrAIServiceUnavailable.Wrap(err)
		}
		generated.Questions = list
	}

	quiz := &model.Quiz{
		ID:           uuid.NewString(),
		Title:        strings.TrimSpace(generated.Title),
		PassingScore: quizPassingScore,
		Questions:    []model.QuizQuestion{},
	}
	if quiz.Title == "" {
		quiz.Title = title
	}
	for _, q := range generated.Questions {
		if len(quiz.Questions) == num {
			break
		}
		options := nonEmpty(q.Options)
		if strings.TrimSpace(q.Question) == "" || len(options) < 2 || len(options) != len(q.Options) {
			continue
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(options) {
			continue
		}
		quiz.Questions = append(quiz.Questions, model.QuizQuestion{
			ID:            uuid.NewString(),
			Question:      strings.TrimSpace(q.Question),
			Options:       options,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   strings.TrimSpace(q.Explanation),
		})
	}
	if len(quiz.Questions) == 0 {
		return nil, apperr.ErrAIServiceUnavailable.Wrap(errors.New("no valid questions in model reply"))
	}
	return quiz, nil
}

// quizSource resolves the material to quiz on and a fallback title
func (s *AIService) quizSource(ctx context.Context, id *auth.Identity, req QuizRequest) (string, string, error) {
	if req.Content != "" {
		return req.Content, "Generated quiz", nil
	}
	if req.CourseID == "" || req.ModuleID == "" {
		return "", "", apperr.Validation("Provide content, or courseId and moduleId")
	}

	course, err := s.courses.Get(ctx, id, req.CourseID)
	if err != nil {
		return "", "", err
	}
	module, ok := course.Module(req.ModuleID)
	if !ok {
		return "", "", apperr.NotFound("Module not found in this course")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n", module.Title, module.Description)
	for _, l := range module.Lessons {
		fmt.Fprintf(&b, "\n## %s\n%s\n", l.Title, l.Content)
	}
	content := strings.TrimSpace(b.String())
	if len(content) < 50 {
		return "", "", apperr.Validation("Module has too little content to generate a quiz")
	}
	if len(content) > 50000 {
		content = content[:50000]
	}
	return content, module.Title + " quiz", nil
}

func moduleOutline(course *model.Course) string {
	var b strings.Builder
	for i, m := range course.Modules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, m.Title)
	}
	return b.String()
}

// relatedModules keeps model-named modules that exist in the course, or
// falls back to modules sharing a word with the question
func relatedModules(course *model.Course, named []string, question string) []string {
	titles := make(map[string]string, len(course.Modules))
	for _, m := range course.Modules {
		titles[strings.ToLower(m.Title)] = m.Title
	}
	out := []string{}
	for _, n := range named {
		if t, ok := titles[strings.ToLower(strings.TrimSpace(n))]; ok {
			out = append(out, t)
		}
	}
	if len(out) > 0 {
		return out
	}

	words := map[string]bool{}
	for _, w := range terms(question) {
		words[w] = true
	}
	for _, m := range course.Modules {
		for _, w := range terms(m.Title) {
			if words[w] {
				out = append(out, m.Title)
				break
			}
		}
	}
	return out
}

func matchesAny(c *model.Course, keywords []string) bool {
	haystack := strings.ToLower(c.Title + " " + c.Category + " " + strings.Join(c.Tags, " "))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && strings.Contains(haystack, k) {
			return true
		}
	}
	return false
}

var stopWords = map[string]bool{
	"the": true, "and": true, "with": true, "for": true, "from": true, "that": true,
	"this": true, "have": true, "were": true, "will": true, "your": true, "about": true,
	"into": true, "what": true, "when": true, "which": true, "their": true, "there": true,
}

// terms splits text into lower-case words of four letters or more
func terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '+' || r == '#')
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= 4 && !stopWords[f] {
			out = append(out, f)
		}
	}
	return out
}

// topTerms returns the n most frequent terms, ties broken alphabetically
func topTerms(text string, n int) []string {
	counts := map[string]int{}
	for _, t := range terms(text) {
		counts[t]++
	}
	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > n {
		words = words[:n]
	}
	return words
}

func bulletLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		for _, prefix := range []string{"- ", "* ", "• "} {
			if strings.HasPrefix(line, prefix) {
				out = append(out, strings.TrimSpace(strings.TrimPrefix(line, prefix)))
				break
			}
		}
	}
	return out
}

// countWords counts whitespace-separated tokens holding a letter or digit
func countWords(text string) int {
	n := 0
	for _, f := range strings.Fields(text) {
		if strings.IndexFunc(f, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) >= 0 {
			n++
		}
	}
	return n
}

func readingTime(content string) int {
	minutes := int(math.Ceil(float64(countWords(content)) / wordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
