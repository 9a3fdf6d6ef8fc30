package resources

const AWS_PROVIDER = "aws"

const (
	DYNAMODB_TABLE_TYPE       = "dynamodb_table"
	IAM_ROLE_TYPE             = "iam_role"
	IAM_STATEMENT_ENTRY       = "iam_statement_entry"
	LAMBDA_FUNCTION_TYPE      = "lambda_function"
	API_GATEWAY_REST_TYPE     = "rest_api"
	API_GATEWAY_RESOURCE_TYPE = "api_resource"
	API_GATEWAY_METHOD_TYPE   = "api_method"
)

const (
	ARN_ATTRIBUTE          = "Arn"
	TABLE_NAME_ENV_VAR     = "TABLE_NAME"
	BASIC_EXECUTION_POLICY = "arn:aws:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole"
)
