// Package http provides the request and JSON response helpers of the
// inspector.
//
//	res := gohttp.NewResponse(w)
//
//	res.JSON(200, data)           // raw JSON with status
//	res.Success(data)             // 200 {"data": ...}
//
//	// Errors
//	res.Error(400, "bad input")   // {"message": "bad input"}
//	res.NotFound()                // 404 {"message": "Not found."}
//	res.MethodNotAllowed()        // 405 {"message": "Method not allowed."}
//	res.ServerError()             // 500 {"message": "Server Error."}
//
//	// Container errors, status picked from the error code
//	res.Fail(err)                 // 404 {"message": ..., "code": "SERVICE_NOT_FOUND", "service": "mailer"}
//
//	// Requests
//	req := gohttp.NewRequest(r)
//	req.RouteParam("id")           // chi URL parameter
//	req.QueryBool("exists")        // ?exists, ?exists=true
//	req.Payload()                  // decoded JSON, form "value" or raw text
package http
