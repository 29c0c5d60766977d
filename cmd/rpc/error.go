package rpc

import (
	"fmt"

	"github.com/canopy-network/dpos/lib"
)

func ErrServerTimeout() lib.ErrorI {
	return lib.NewError(lib.CodeRPCTimeout, lib.RPCModule, "server timeout")
}

func ErrInvalidParam(name, value string) lib.ErrorI {
	return lib.NewError(lib.CodeInvalidParam, lib.RPCModule, fmt.Sprintf("invalid param %s: %q", name, value))
}

func ErrNotFound(what string) lib.ErrorI {
	return lib.NewError(lib.CodeNotFound, lib.RPCModule, what)
}

func ErrGetRequest(err error) lib.ErrorI {
	return lib.NewError(lib.CodeGetRequest, lib.RPCModule, fmt.Sprintf("http.Get() failed with err: %s", err.Error()))
}

func ErrHttpStatus(status string, statusCode int, body []byte) lib.ErrorI {
	return lib.NewError(lib.CodeHttpStatus, lib.RPCModule, fmt.Sprintf("http response bad status %s with code %d and body %s", status, statusCode, body))
}

func ErrReadBody(err error) lib.ErrorI {
	return lib.NewError(lib.CodeReadBody, lib.RPCModule, fmt.Sprintf("io.ReadAll(http.ResponseBody) failed with err: %s", err.Error()))
}

func ErrListen(err error) lib.ErrorI {
	return lib.NewError(lib.CodeListen, lib.RPCModule, fmt.Sprintf("net.Listen() failed with err: %s", err.Error()))
}

func ErrServerShutdown(err error) lib.ErrorI {
	return lib.NewError(lib.CodeServerShutdown, lib.RPCModule, fmt.Sprintf("server shutdown failed with err: %s", err.Error()))
}
