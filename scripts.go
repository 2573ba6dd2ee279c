package resumepdf

import (
	"encoding/json"
	"fmt"
)

// Page-side scripts shared by every engine. Each is a single function
// expression taking one JSON argument.

// mountScript creates the hidden container, injects the markup via
// innerHTML (scripts inside it never run) and resolves with its size once
// every image has loaded or failed and web fonts are ready.
const mountScript = `async (arg) => {
  document.documentElement.style.background = "white";
  document.body.style.margin = "0";
  const el = document.createElement("div");
  el.id = arg.id;
  const s = el.style;
  s.position = "absolute";
  s.left = "-10000px";
  s.top = "0";
  s.width = arg.width + "px";
  s.minHeight = arg.minHeight + "px";
  s.background = "white";
  s.boxSizing = "border-box";
  s.overflow = "visible";
  el.innerHTML = arg.html;
  document.body.appendChild(el);
  const pending = Array.from(el.querySelectorAll("img"))
    .filter((img) => !img.complete)
    .map((img) => new Promise((resolve) => {
      img.addEventListener("load", resolve, { once: true });
      img.addEventListener("error", resolve, { once: true });
    }));
  await Promise.all(pending);
  if (document.fonts && document.fonts.ready) {
    await document.fonts.ready;
  }
  const r = el.getBoundingClientRect();
  return { width: Math.ceil(r.width), height: Math.ceil(Math.max(r.height, el.scrollHeight)) };
}`

// measureScript reports the current size of a mounted container.
const measureScript = `(arg) => {
  const el = document.getElementById(arg.id);
  if (!el) {
    throw new Error("surface " + arg.id + " is not mounted");
  }
  const r = el.getBoundingClientRect();
  return { width: Math.ceil(r.width), height: Math.ceil(Math.max(r.height, el.scrollHeight)) };
}`

// frameScript moves a mounted container into (left = 0) or out of
// (left = -10000px) the capture frame.
const frameScript = `(arg) => {
  const el = document.getElementById(arg.id);
  if (!el) {
    throw new Error("surface " + arg.id + " is not mounted");
  }
  el.style.left = arg.inFrame ? "0" : "-10000px";
  return true;
}`

// unmountScript removes a container if it is still attached.
const unmountScript = `(arg) => {
  const el = document.getElementById(arg.id);
  if (el) {
    el.remove();
  }
  return true;
}`

type mountArg struct {
	ID        string `json:"id"`
	HTML      string `json:"html"`
	Width     int    `json:"width"`
	MinHeight int    `json:"minHeight"`
}

type surfaceArg struct {
	ID      string `json:"id"`
	InFrame bool   `json:"inFrame,omitempty"`
}

// callExpression turns a function expression and its argument into a
// self-invoking expression for engines that evaluate plain source.
func callExpression(fn string, arg any) (string, error) {
	b, err := json.Marshal(arg)
	if err != nil {
		return "", fmt.Errorf("encoding script argument: %w", err)
	}
	return "(" + fn + ")(" + string(b) + ")", nil
}
