/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package apiutils

// Response is the envelope every endpoint answers with.
type Response struct {
	Result string      `json:"result"`
	Msg    string      `json:"msg"`
	Error  string      `json:"error"`
	Data   interface{} `json:"data"`
}

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

func NewSuccessResponse(data interface{}) Response {
	return Response{
		Result: ResultSuccess,
		Data:   data,
	}
}

func NewFailureResponse(code, message string, data interface{}) Response {
	return Response{
		Result: ResultFailure,
		Error:  code,
		Msg:    message,
		Data:   data,
	}
}
