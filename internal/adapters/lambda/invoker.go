// Package lambda invokes AWS Lambda functions synchronously with JSON payloads.
package lambda

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

// API is the subset of the Lambda client used here.
type API interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// Invoker implements invoker.Invoker on top of the Lambda Invoke API.
type Invoker struct {
	api API
}

func NewInvoker(api API) *Invoker {
	return &Invoker{api: api}
}

// NewFromRegion loads the default AWS credential chain for region.
func NewFromRegion(ctx context.Context, region string) (*Invoker, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewInvoker(lambda.NewFromConfig(cfg)), nil
}

// InvokeJSON sends payload as JSON and returns the function's JSON result.
//
// A result in API Gateway proxy form ({"statusCode":..., "body":"<json>"}) is
// unwrapped to its body. An empty result is returned as {}.
func (i *Invoker) InvokeJSON(ctx context.Context, function string, payload any) ([]byte, error) {
	in, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal lambda payload: %w", err)
	}

	out, err := i.api.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(function),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        in,
	})
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", function, err)
	}
	if out.FunctionError != nil {
		return nil, fmt.Errorf("lambda error: %s. Payload: %s", aws.ToString(out.FunctionError), string(out.Payload))
	}
	if len(out.Payload) == 0 {
		return []byte("{}"), nil
	}
	return unwrapProxy(out.Payload)
}

func unwrapProxy(raw []byte) ([]byte, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		// Not an object; let the caller judge the shape.
		if !json.Valid(raw) {
			return nil, fmt.Errorf("lambda returned invalid JSON: %w", err)
		}
		return raw, nil
	}
	body, ok := probe["body"]
	if !ok {
		return raw, nil
	}
	var s string
	if err := json.Unmarshal(body, &s); err != nil {
		return raw, nil
	}
	if !json.Valid([]byte(s)) {
		return nil, fmt.Errorf("lambda proxy body is not JSON")
	}
	return []byte(s), nil
}
