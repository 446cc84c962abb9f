package extract

import (
	"regexp"
	"sort"
	"strings"
)

// keywords matches any of its terms case-insensitively
type keywords struct {
	re *regexp.Regexp
}

func compileTerms(prefix, suffix string, words []string) keywords {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return keywords{re: regexp.MustCompile(`(?i)` + prefix + `(?:` + strings.Join(quoted, "|") + `)` + suffix)}
}

// terms match at the start of a word: "speech" matches "speeches"
func terms(words ...string) keywords {
	return compileTerms(`\b`, "", words)
}

// wholeWords match complete words only: "text" does not match "texture"
func wholeWords(words ...string) keywords {
	return compileTerms(`\b`, `\b`, words)
}

// fragments match anywhere, inside words too
func fragments(words ...string) keywords {
	return compileTerms("", "", words)
}

func (k keywords) in(text string) bool {
	return k.re.MatchString(text)
}

type rule struct {
	label string
	match keywords
}

func firstRule(rules []rule, text string) string {
	for _, r := range rules {
		if r.match.in(text) {
			return r.label
		}
	}
	return ""
}

var (
	imageTerms = terms("image", "visual", "picture")
	textTerms  = terms("text", "language")

	descriptionModalities = []rule{
		{"Video", terms("video", "motion")},
		{"Audio", terms("audio", "sound", "speech")},
		{"Text", terms("text", "language", "nlp")},
	}
)

// DescriptionModality scans free text for modality keywords. Image combined
// with text is reported before any single category. With textDefault set,
// text without any keyword is reported as Text.
func DescriptionModality(text string, textDefault bool) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	if imageTerms.in(text) {
		if textTerms.in(text) {
			return "Image-Text"
		}
		return "Image"
	}
	if m := firstRule(descriptionModalities, text); m != "" {
		return m
	}
	if textDefault {
		return "Text"
	}
	return ""
}

var taskModalities = []rule{
	{"Image", wholeWords("image", "visual", "object detection", "segmentation", "recognition",
		"classification", "detection", "localization", "tracking", "face", "person", "human",
		"pose estimation", "keypoint", "instance segmentation", "semantic segmentation", "panoptic")},
	{"Text", wholeWords("text", "nlp", "language", "translation", "sentiment", "question answering",
		"summarization", "generation", "document", "named entity", "parsing", "speech recognition", "caption")},
	{"Audio", wholeWords("audio", "speech", "voice", "sound", "acoustic", "music", "speaker", "noise")},
	{"Video", wholeWords("video", "action", "activity", "temporal", "motion", "tracking", "optical flow")},
	{"3D", wholeWords("3d", "point cloud", "mesh", "depth", "pose", "lidar", "stereo", "reconstruction", "human pose")},
	{"Time Series", wholeWords("time series", "temporal", "sequence", "forecasting", "prediction", "trajectory")},
	{"Graph", wholeWords("graph", "network", "relation", "knowledge graph", "scene graph")},
	{"Tabular", wholeWords("tabular", "table", "spreadsheet", "structured data")},
}

var (
	poseTask    = fragments("pose estimation")
	denseTask   = fragments("detection", "segmentation")
	captionTask = fragments("caption", "visual question")
)

// TaskModalities infers modalities from a comma separated task list and
// returns them sorted and comma separated
func TaskModalities(tasks string) string {
	found := make(map[string]bool)
	for _, task := range strings.Split(tasks, ",") {
		task = strings.TrimSpace(task)
		if task == "" {
			continue
		}
		for _, r := range taskModalities {
			if r.match.in(task) {
				found[r.label] = true
			}
		}
		if poseTask.in(task) {
			found["3D"] = true
			found["Image"] = true
		}
		if denseTask.in(task) {
			found["Image"] = true
		}
		if captionTask.in(task) {
			found["Image"] = true
			found["Text"] = true
		}
	}

	out := make([]string, 0, len(found))
	for m := range found {
		out = append(out, m)
	}
	sort.Strings(out)
	return strings.Join(out, ", ")
}

type override struct {
	contains string
	value    string
}

// Modalities of well-known datasets whose pages carry no usable hints
var nameModalities = []override{
	{"10,000 People", "Image"},
	{"300W", "Image"},
	{"3DPW", "3D"},
	{"AMASS", "3D"},
	{"BDD100K", "Video, Image"},
	{"COCO", "Image"},
	{"DensePose", "Image"},
	{"GQA", "Image"},
	{"JHMDB", "Video"},
	{"KITTI", "Image, 3D"},
	{"LVIS", "Image"},
	{"Manga109", "Image"},
	{"MPII", "Image"},
	{"nuScenes", "Image, 3D"},
}

var nameLanguages = []override{
	{"Manga109", "Japanese"},
	{"COCO", "English"},
	{"ImageNet", "English"},
	{"KITTI", "English"},
	{"MPII", "English"},
	{"LVIS", "English"},
	{"nuScenes", "English"},
}

func lookupName(table []override, name string) string {
	for _, o := range table {
		if strings.Contains(name, o.contains) {
			return o.value
		}
	}
	return ""
}

// NameModality returns the override modality for a dataset name
func NameModality(name string) string {
	return lookupName(nameModalities, name)
}

// NameLanguages returns the override languages for a dataset name
func NameLanguages(name string) string {
	return lookupName(nameLanguages, name)
}

var domains = []rule{
	{"Scientific", terms("scientific", "science", "research")},
	{"UI", terms("ui", "interface", "gui")},
	{"Document", terms("document", "pdf", "ocr")},
}

// Domain classifies a description; non-empty text defaults to General
func Domain(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	if d := firstRule(domains, text); d != "" {
		return d
	}
	return "General"
}

var taskTypes = []rule{
	{"Question Answering", terms("question answering")},
	{"Classification", terms("classification")},
	{"Detection", terms("detection")},
	{"Segmentation", terms("segmentation")},
	{"Captioning", terms("captioning")},
	{"Translation", terms("translation")},
	{"Summarization", terms("summarization")},
	{"Reasoning", terms("reasoning")},
	{"Sentiment Analysis", terms("sentiment")},
}

// TaskType classifies a description; non-empty text defaults to General
func TaskType(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	if t := firstRule(taskTypes, text); t != "" {
		return t
	}
	return "General"
}

var tagTaskTypes = []rule{
	{"Classification", terms("classification")},
	{"Question Answering", terms("question")},
	{"Summarization", terms("summarization")},
	{"Translation", terms("translation")},
	{"Sentiment Analysis", terms("sentiment")},
}

// TagTaskType classifies a list of catalog task tags
func TagTaskType(tags []string) string {
	for _, r := range tagTaskTypes {
		for _, tag := range tags {
			if r.match.in(tag) {
				return r.label
			}
		}
	}
	return ""
}

// OutputType derives the model output kind from a task type
func OutputType(taskType string) string {
	switch taskType {
	case "":
		return ""
	case "Classification", "Sentiment Analysis":
		return "Label"
	case "Detection", "Segmentation":
		return "Bounding Box/Mask"
	default:
		return "Text"
	}
}

var evaluationMetrics = map[string]string{
	"Classification":     "Accuracy, F1 Score, Precision, Recall",
	"Question Answering": "Exact Match, F1 Score",
	"Summarization":      "ROUGE, BLEU, BERTScore",
	"Translation":        "BLEU, METEOR, TER",
	"Sentiment Analysis": "Accuracy, F1 Score",
	"Detection":          "mAP, IoU",
	"Segmentation":       "IoU, Pixel Accuracy",
	"Captioning":         "BLEU, METEOR, CIDEr, ROUGE",
	"Reasoning":          "Accuracy, F1 Score",
	"General":            "Accuracy, F1 Score",
}

var modelArchitectures = map[string]string{
	"Classification":     "BERT, RoBERTa, DeBERTa, XLNet",
	"Question Answering": "BERT, RoBERTa, T5, BART",
	"Summarization":      "BART, T5, Pegasus, ProphetNet",
	"Translation":        "T5, mBART, M2M100",
	"Sentiment Analysis": "BERT, RoBERTa, DistilBERT",
	"Detection":          "DETR, Faster R-CNN, YOLO",
	"Segmentation":       "Mask R-CNN, DeepLab, U-Net",
	"Captioning":         "CLIP, VL-BERT, ViLBERT",
	"Reasoning":          "T5, UnifiedQA, BART",
	"General":            "BERT, RoBERTa, T5",
}

// Metrics returns the usual evaluation metrics of a task type
func Metrics(taskType string) string {
	return evaluationMetrics[taskType]
}

// Architectures returns the usual model architectures of a task type
func Architectures(taskType string) string {
	return modelArchitectures[taskType]
}

// TaskTypeModality maps a resolved task type to a modality
func TaskTypeModality(taskType string) string {
	switch taskType {
	case "":
		return ""
	case "Captioning":
		return "Image-Text"
	case "Detection", "Segmentation":
		return "Image"
	default:
		return TaskModalities(taskType)
	}
}

var (
	languagesPattern  = regexp.MustCompile(`(?i)languages?:?\s*([^.]+)`)
	languagesPattern2 = regexp.MustCompile(`(?i)in\s+(\w+(?:,\s+\w+)*)\s+languages?`)
	englishTerm       = terms("english")
)

// Languages finds the languages a description mentions
func Languages(text string) string {
	if v := firstGroup(languagesPattern, text); v != "" {
		return CleanText(v)
	}
	if v := firstGroup(languagesPattern2, text); v != "" {
		return CleanText(v)
	}
	if englishTerm.in(text) {
		return "English"
	}
	return ""
}

var (
	sotaPattern     = regexp.MustCompile(`(?i)(?:state-of-the-art|sota|best).+?(\d+(?:\.\d+)?%?)`)
	ethicsPattern   = regexp.MustCompile(`(?i)(?:ethical|bias|fairness|demographic).+?([^.]+)`)
	preprocPattern  = regexp.MustCompile(`(?i)(?:preprocess|tokeniz|clean).+?([^.]+)`)
	hardwarePattern = regexp.MustCompile(`(?i)(?:hardware|gpu|cpu|memory|ram).+?([^.]+)`)
	timePattern     = regexp.MustCompile(`(?i)(?:train(?:ing)? time|hours|minutes).+?([^.]+)`)
)

// Notes holds free-text hints found in a description
type Notes struct {
	SOTA, Ethics, Preprocessing, Hardware, TrainingTime string
}

// DescriptionNotes runs the independent note patterns over text
func DescriptionNotes(text string) Notes {
	return Notes{
		SOTA:          CleanText(firstGroup(sotaPattern, text)),
		Ethics:        CleanText(firstGroup(ethicsPattern, text)),
		Preprocessing: CleanText(firstGroup(preprocPattern, text)),
		Hardware:      CleanText(firstGroup(hardwarePattern, text)),
		TrainingTime:  CleanText(firstGroup(timePattern, text)),
	}
}
