package gemini

import (
	"strings"

	"web3-talent-scout/internal/domain"

	"github.com/google/generative-ai-go/genai"
)

// 报告的输出结构有两份约束，必须保持一致：
// reportResponseSchema() 在调用侧钉住模型的生成结构，
// reportSchemaJSON 在解析侧校验 "字段齐全、没有多余字段"。

func reportResponseSchema() *genai.Schema {
	scoreProp := &genai.Schema{Type: genai.TypeInteger, Description: "0-100"}
	stringArray := &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"profileSummary": {Type: genai.TypeString},
			"scores": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"overall":       scoreProp,
					"web3Expertise": scoreProp,
					"codeQuality":   scoreProp,
					"activity":      scoreProp,
					"consistency":   scoreProp,
					"collaboration": scoreProp,
					"documentation": scoreProp,
				},
				Required: []string{"overall", "web3Expertise", "codeQuality", "activity", "consistency", "collaboration", "documentation"},
			},
			"web3Assessment": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"isWeb3Developer": {Type: genai.TypeBoolean},
					"stacks":          stringArray,
					"depth":           {Type: genai.TypeString, Description: "证据不足时写 unknown"},
					"evidence":        stringArray,
				},
				Required: []string{"isWeb3Developer", "stacks", "depth", "evidence"},
			},
			"engineeringAssessment": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"testingCiLevel": {
						Type: genai.TypeString,
						Enum: []string{domain.TestingLevelNone, domain.TestingLevelBasic, domain.TestingLevelSolid, domain.TestingLevelUnknown},
					},
					"strengths": stringArray,
					"concerns":  stringArray,
				},
				Required: []string{"testingCiLevel", "strengths", "concerns"},
			},
			"repoInsights": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":       {Type: genai.TypeString},
						"importance": {Type: genai.TypeString, Enum: []string{"high", "medium", "low"}},
						"insight":    {Type: genai.TypeString},
						"evidence":   stringArray,
					},
					Required: []string{"name", "importance", "insight", "evidence"},
				},
			},
			"recommendation": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"verdict": {
						Type: genai.TypeString,
						Enum: []string{domain.VerdictStrongHire, domain.VerdictHire, domain.VerdictMaybe, domain.VerdictNoHire},
					},
					"reasoning": {Type: genai.TypeString},
					"roleFit": {
						Type: genai.TypeArray,
						Items: &genai.Schema{
							Type: genai.TypeObject,
							Properties: map[string]*genai.Schema{
								"role":          {Type: genai.TypeString, Enum: domain.RoleNames},
								"score":         scoreProp,
								"justification": {Type: genai.TypeString},
							},
							Required: []string{"role", "score", "justification"},
						},
					},
				},
				Required: []string{"verdict", "reasoning", "roleFit"},
			},
			"interviewPlan": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"questions": {
						Type: genai.TypeArray,
						Items: &genai.Schema{
							Type: genai.TypeObject,
							Properties: map[string]*genai.Schema{
								"category":          {Type: genai.TypeString, Enum: questionCategories},
								"question":          {Type: genai.TypeString},
								"rationale":         {Type: genai.TypeString},
								"goodAnswerSignals": stringArray,
							},
							Required: []string{"category", "question", "rationale", "goodAnswerSignals"},
						},
					},
					"takeHomeTasks": {
						Type: genai.TypeArray,
						Items: &genai.Schema{
							Type: genai.TypeObject,
							Properties: map[string]*genai.Schema{
								"title":       {Type: genai.TypeString},
								"description": {Type: genai.TypeString},
								"skillLevel":  {Type: genai.TypeString},
							},
							Required: []string{"title", "description", "skillLevel"},
						},
					},
				},
				Required: []string{"questions", "takeHomeTasks"},
			},
			"dueDiligenceNotes": stringArray,
		},
		Required: []string{"profileSummary", "scores", "web3Assessment", "engineeringAssessment", "repoInsights", "recommendation", "interviewPlan", "dueDiligenceNotes"},
	}
}

// reportSchemaJSON 是解析侧的校验 schema：所有字段必填，additionalProperties 一律关死
var reportSchemaJSON = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["profileSummary", "scores", "web3Assessment", "engineeringAssessment", "repoInsights", "recommendation", "interviewPlan", "dueDiligenceNotes"],
  "properties": {
    "profileSummary": {"type": "string"},
    "scores": {
      "type": "object",
      "additionalProperties": false,
      "required": ["overall", "web3Expertise", "codeQuality", "activity", "consistency", "collaboration", "documentation"],
      "properties": {
        "overall": {"type": "integer"},
        "web3Expertise": {"type": "integer"},
        "codeQuality": {"type": "integer"},
        "activity": {"type": "integer"},
        "consistency": {"type": "integer"},
        "collaboration": {"type": "integer"},
        "documentation": {"type": "integer"}
      }
    },
    "web3Assessment": {
      "type": "object",
      "additionalProperties": false,
      "required": ["isWeb3Developer", "stacks", "depth", "evidence"],
      "properties": {
        "isWeb3Developer": {"type": "boolean"},
        "stacks": {"type": "array", "items": {"type": "string"}},
        "depth": {"type": "string"},
        "evidence": {"type": "array", "items": {"type": "string"}}
      }
    },
    "engineeringAssessment": {
      "type": "object",
      "additionalProperties": false,
      "required": ["testingCiLevel", "strengths", "concerns"],
      "properties": {
        "testingCiLevel": {"type": "string", "enum": ["none", "basic", "solid", "unknown"]},
        "strengths": {"type": "array", "items": {"type": "string"}},
        "concerns": {"type": "array", "items": {"type": "string"}}
      }
    },
    "repoInsights": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["name", "importance", "insight", "evidence"],
        "properties": {
          "name": {"type": "string"},
          "importance": {"type": "string", "enum": ["high", "medium", "low"]},
          "insight": {"type": "string"},
          "evidence": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "recommendation": {
      "type": "object",
      "additionalProperties": false,
      "required": ["verdict", "reasoning", "roleFit"],
      "properties": {
        "verdict": {"type": "string", "enum": ["strong_hire", "hire", "maybe", "no_hire"]},
        "reasoning": {"type": "string"},
        "roleFit": {
          "type": "array",
          "items": {
            "type": "object",
            "additionalProperties": false,
            "required": ["role", "score", "justification"],
            "properties": {
              "role": {"type": "string", "enum": ["ROLE_NAMES"]},
              "score": {"type": "integer"},
              "justification": {"type": "string"}
            }
          }
        }
      }
    },
    "interviewPlan": {
      "type": "object",
      "additionalProperties": false,
      "required": ["questions", "takeHomeTasks"],
      "properties": {
        "questions": {
          "type": "array",
          "minItems": 6,
          "maxItems": 10,
          "items": {
            "type": "object",
            "additionalProperties": false,
            "required": ["category", "question", "rationale", "goodAnswerSignals"],
            "properties": {
              "category": {"type": "string", "enum": ["QUESTION_CATEGORIES"]},
              "question": {"type": "string"},
              "rationale": {"type": "string"},
              "goodAnswerSignals": {"type": "array", "items": {"type": "string"}}
            }
          }
        },
        "takeHomeTasks": {
          "type": "array",
          "minItems": 2,
          "maxItems": 4,
          "items": {
            "type": "object",
            "additionalProperties": false,
            "required": ["title", "description", "skillLevel"],
            "properties": {
              "title": {"type": "string"},
              "description": {"type": "string"},
              "skillLevel": {"type": "string"}
            }
          }
        }
      }
    },
    "dueDiligenceNotes": {"type": "array", "items": {"type": "string"}}
  }
}`

func init() {
	// 岗位集合和题目类别的枚举只在 domain / 本包里维护一份，这里注入进 JSON schema
	reportSchemaJSON = strings.Replace(reportSchemaJSON, `"ROLE_NAMES"`, quoteJoin(domain.RoleNames), 1)
	reportSchemaJSON = strings.Replace(reportSchemaJSON, `"QUESTION_CATEGORIES"`, quoteJoin(questionCategories), 1)
}

func quoteJoin(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + v + `"`
	}
	return strings.Join(quoted, ", ")
}
