package inspection

import (
	"strings"

	"github.com/dronescan/wallscan/pkg/types"
)

// SimpleTestPrompt for testing if the model can see images
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

// SystemPrompt frames the model as a structural inspector before the format
// instructions go in.
const SystemPrompt = `You are an expert structural engineer specializing in drone-based building inspections. ` +
	`Your task is to analyze images for structural defects with high precision. ` +
	`You must identify cracks, mortar erosion, spalling, water damage, and other defects. ` +
	`CRITICAL: Focus ONLY on the brick/masonry surfaces. Ignore sky, clouds, trees, and background. ` +
	`Provide accurate bounding box coordinates where origin (0,0) is at TOP-LEFT corner. ` +
	`Be thorough, systematic, and precise with spatial measurements.`

const commonInstructions = `You are inspecting a BRICK WALL for structural defects. Focus ONLY on the brick/masonry surfaces.

IGNORE these areas:
- Sky and clouds (usually in upper portion)
- Trees, vehicles, ground
- Any non-brick surfaces

FOCUS ONLY on the brick wall and scan it systematically for:
- Cracks (hairline, vertical, horizontal, diagonal)
- Mortar erosion or gaps in joints
- Spalled or damaged bricks
- Color variations indicating water damage
- Any irregularities in the brickwork

CRITICAL INSTRUCTIONS:
1. Each defect needs its OWN SMALL bounding box - draw tight boxes around individual cracks
2. If you see 5 different cracks, create 5 separate bounding boxes
3. Small cracks should have small boxes
4. DO NOT create one large box covering multiple defects
5. ONLY place boxes on the BRICK SURFACE, never on sky/clouds

COORDINATE SYSTEM:
Origin (0,0) is at TOP-LEFT corner. Y increases downwards.
- Y near 0 = top of image (often sky)
- Y near middle = center of image (often brick wall)
- Y near max = bottom of image (often ground/roof)

`

const qwenFormat = `OUTPUT FORMAT - Qwen-1000 corners format:
"bbox_2d": [x1, y1, x2, y2]

Where ALL values are in the range 0-1000 (NOT 0-1):
- x1: left edge X coordinate (0 = left edge, 1000 = right edge)
- y1: top edge Y coordinate (0 = TOP edge, 1000 = BOTTOM edge)
- x2: right edge X coordinate (0 = left edge, 1000 = right edge)
- y2: bottom edge Y coordinate (0 = TOP edge, 1000 = BOTTOM edge)

CRITICAL: Values are 0-1000, independent of actual image size.
A box from 20% to 30% horizontally and 35% to 40% vertically would be:
[200, 350, 300, 400]

REALISTIC EXAMPLE - defects on brick wall in middle of image:
{
  "cracks": [
    {"bbox_2d": [320, 350, 400, 380], "description": "horizontal crack in mortar"},
    {"bbox_2d": [450, 380, 500, 400], "description": "vertical crack in brick"},
    {"bbox_2d": [250, 320, 290, 340], "description": "mortar erosion"}
  ]
}

`

const yoloFormat = `OUTPUT FORMAT - YOLO normalized format:
"bbox_2d": [class_id, x_center, y_center, width, height]

Where ALL values are normalized to 0.0-1.0 range:
- class_id: Always 0 for cracks
- x_center: horizontal center (0.0=left, 1.0=right)
- y_center: vertical center measured FROM TOP (0.0=top, 1.0=bottom)
- width: box width as fraction (typically 0.02-0.10)
- height: box height as fraction (typically 0.02-0.10)

CRITICAL: All coordinates are 0.0-1.0, representing fractions of image dimensions.

REALISTIC EXAMPLE - defects on brick wall in middle of image:
{
  "cracks": [
    {"bbox_2d": [0, 0.35, 0.38, 0.08, 0.03], "description": "horizontal crack"},
    {"bbox_2d": [0, 0.50, 0.42, 0.05, 0.02], "description": "vertical crack"},
    {"bbox_2d": [0, 0.28, 0.35, 0.04, 0.02], "description": "mortar erosion"}
  ]
}

`

const closingInstructions = `BEFORE YOU RESPOND:
1. Identify where the brick wall is located in the image
2. Ignore sky, clouds, and background
3. Look for actual defects ONLY on the brick surface
4. Measure coordinates carefully

Return ONLY valid JSON - no extra text. If no defects found, return {"cracks": []}.
Be thorough and ACCURATE - focus on BRICK WALL only, typical images have 5-15 defects.`

// PromptFor returns the inspection prompt and the box encoding it asks for.
// Qwen-family models are instructed in their native 0..1000 corner grid,
// everything else gets normalized YOLO center-form.
func PromptFor(model string) (string, types.Encoding) {
	if strings.Contains(strings.ToLower(model), "qwen") {
		return commonInstructions + qwenFormat + closingInstructions, types.Qwen1000
	}
	return commonInstructions + yoloFormat + closingInstructions, types.YoloNormalized
}
