package writer

import "github.com/go-scripts/benchscrape/internal/types"

// PwcSchema is the column set of the benchmark-catalog export
var PwcSchema = types.Schema{
	Name: "pwc",
	Columns: []string{
		"dataset_id",
		"dataset_name",
		"description",
		"source_url",
		"license",
		"modalities",
		"languages",
		"year_published",
		"paper_title",
		"paper_url",
		"dataset_size",
		"dataset_splits",
		"num_classes",
		"associated_tasks",
		"benchmark_urls",
		"pwc_url",
	},
}

// HfSchema is the column set of the dataset-catalog export
var HfSchema = types.Schema{
	Name: "hf",
	Columns: []string{
		"benchmark_name",
		"modality",
		"task_type",
		"domain",
		"output_type",
		"evaluation_metrics",
		"paper_link",
		"dataset_link",
		"languages",
		"dataset_size",
		"num_train_examples",
		"num_val_examples",
		"num_test_examples",
		"sota_performance",
		"sota_model",
		"license_details",
		"last_updated",
		"citation_count",
		"downloads",
		"example_code_link",
		"similar_benchmarks",
		"data_format",
		"preprocessing_notes",
		"ethical_considerations",
		"model_architectures",
		"hardware_requirements",
		"training_time",
	},
}
