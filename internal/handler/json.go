package handler

import (
    "fmt"
    "net/http"

    "github.com/goccy/go-json"
    "github.com/labstack/echo/v4"
)

// JSONSerializer plugs goccy/go-json into echo's Bind and c.JSON.
type JSONSerializer struct{}

func (JSONSerializer) Serialize(c echo.Context, i any, indent string) error {
    enc := json.NewEncoder(c.Response())
    if indent != "" {
        enc.SetIndent("", indent)
    }
    return enc.Encode(i)
}

func (JSONSerializer) Deserialize(c echo.Context, i any) error {
    err := json.NewDecoder(c.Request().Body).Decode(i)
    if ute, ok := err.(*json.UnmarshalTypeError); ok {
        return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%s must be a %v", ute.Field, ute.Type)).SetInternal(err)
    }
    if se, ok := err.(*json.SyntaxError); ok {
        return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("malformed JSON at offset %d", se.Offset)).SetInternal(err)
    }
    if err != nil {
        return echo.NewHTTPError(http.StatusBadRequest, "invalid request body").SetInternal(err)
    }
    return nil
}
