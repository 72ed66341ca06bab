package core

import "fmt"

const scatterSystemPrompt = `You are a chart generation assistant. Generate a scatter plot based on the prompt.
Return ONLY a JSON object in this format:
{
  "type": "chart",
  "chartType": "scatter",
  "title": "Chart Title",
  "description": "Chart Description",
  "xAxisLabel": "X-axis label",
  "yAxisLabel": "Y-axis label",
  "data": [
    {
      "name": "Series name",
      "data": [
        { "x": number, "y": number, "label": "string (optional)" }
      ]
    }
  ]
}
Include 15-30 realistic data points that show meaningful patterns.`

const generalSystemPrompt = `You are a chart and diagram generation assistant. Return ONLY a JSON object in one of these formats:

For charts:
{
  "type": "chart",
  "chartType": "bar" | "line" | "pie" | "radar",
  "title": "Chart Title",
  "description": "Chart Description",
  "data": [{"name": "Label 1", "value": 100}]
}

For diagrams:
{
  "type": "diagram",
  "diagramType": "flowchart",
  "title": "Diagram Title",
  "code": "flowchart TD\\n  A[CPU] --> B[Memory]"
}

For text:
{
  "type": "text",
  "content": "Your text response"
}

RULES:
1. For radar charts, provide 5-8 categories
2. All values should be between 0-100
3. Ensure valid JSON format
4. DO NOT include any text outside the JSON`

const scatterPlotPrompt = `You are a data visualization expert. Generate scatter plot data based on the user's prompt.
Format the response as a JSON object with:
{
  "title": "Plot title",
  "description": "Plot description",
  "xAxisLabel": "X-axis label",
  "yAxisLabel": "Y-axis label",
  "data": [
    {
      "name": "Series name",
      "data": [
        {
          "x": number,
          "y": number,
          "z": number (optional),
          "label": "string" (optional),
          "category": "string" (optional)
        }
      ],
      "color": "string (hex color code)"
    }
  ]
}
Generate realistic, coherent data that makes sense for the context.
Include 15-30 data points per series.
Use appropriate scales and ranges for the data.
ONLY return the JSON object, no additional text.`

const comparisonPromptTemplate = `Generate a detailed comparison in JSON format for: %s

Format the response EXACTLY as follows:
{
  "title": "Clear comparison title",
  "products": ["Product1", "Product2", ...],
  "data": [
    {
      "feature": "Feature name",
      "Product1": "Value",
      "Product2": "Value"
    }
  ]
}

Important rules:
1. ONLY return valid JSON
2. Include at least 8-10 key features
3. Use consistent formatting for similar values
4. Include specific numbers and details
5. Keep descriptions concise but informative
6. Format prices as numbers without currency symbols
7. Use "Yes" or "No" for boolean features
8. Include technical specifications where relevant

DO NOT include any explanatory text, ONLY the JSON object.`

const analysisSystemPrompt = "You are a data analysis expert. Analyze data and provide clear, concise insights " +
	"with statistical observations where relevant. Format your response with proper headings and paragraphs."

const analysisPromptTemplate = `Analyze this dataset and provide insights:

Data Summary:
%s

User Question: %s

Please structure your analysis with:
1. Data Summary Analysis (as a main heading)
2. Key Observations (as a subheading)
3. Patterns & Trends (as a subheading)
4. Statistical Insights (as a subheading)
5. Recommendations (if applicable) (as a subheading)

Be concise and use bullet points where appropriate.`

const (
	titleSystemInstruction = "You are a helpful assistant that generates concise titles for chart conversations. " +
		"The title should be 3-5 words maximum. Just return the title itself, nothing else."
	titlePromptTemplate = "Generate a very concise title (3-5 words maximum) for a conversation that starts with or is about: %q."
)

func systemPrompt(chartType string) string {
	if chartType == "scatter" {
		return scatterSystemPrompt
	}
	return generalSystemPrompt
}

func comparisonPrompt(prompt string) string {
	return fmt.Sprintf(comparisonPromptTemplate, prompt)
}

func analysisPrompt(summary, question string) string {
	return fmt.Sprintf(analysisPromptTemplate, summary, question)
}
